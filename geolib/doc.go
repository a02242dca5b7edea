// This package provides a set of structs and functions which are used
// to geolocate IP addresses against a single rate-limited upstream.
//
// geolib is a core of the geoguard project. You can treat the rest of
// the application as an _example_ on how to use this library: how to
// read configuration, how to expose it over HTTP, how to implement
// providers.
//
// Resolver is a main entity of the geolib. Its Resolve method is total:
// it returns a coordinate or nil and never an error. Between a caller
// and a provider there are several layers:
//
//    1. Address validation and classification. Private, reserved and
//       malformed addresses never reach the network.
//    2. LRU cache. Both positive and negative answers are stored.
//    3. Request coalescing. Concurrent lookups of the same address
//       share a single upstream call.
//    4. Circuit breaker. After several consecutive failures upstream
//       is not contacted until a cooldown passes.
//    5. Rate limiter. There is a minimal spacing between requests and
//       a cap on a number of requests within a rolling minute.
//    6. Retries with exponential backoff. Rate limiter is passed once
//       per lookup, retries are spaced by the backoff itself. Every
//       attempt is bounded by a hard timeout.
//
// Rate limited and circuit-rejected lookups are not cached: they say
// nothing about the address itself.
package geolib
