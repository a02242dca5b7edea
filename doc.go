// Geoguard is a service which resolves IP addresses into geographic
// coordinates.
//
// It sits in front of a rate-limited and sometimes unreliable upstream
// (ip-api.com or compatible) and makes sure that this upstream sees as
// few requests as possible: results are cached, concurrent lookups of
// the same address are merged, private addresses never leave the
// process and a circuit breaker stops traffic when upstream is down.
//
// Geolib
//
// geolib is a main package of the application. It has Resolver struct
// with all the protection layers and an HTTP API for it.
//
// Providers
//
// This package has upstream provider implementations.
//
// Geoguard
//
// A main package wires both geolib and providers into a binary. It can
// either run HTTP server or resolve given addresses from command line.
package main
