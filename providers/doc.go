// Package providers contains implementations of upstream geolocation
// providers which can be used by geolib.Resolver.
package providers
