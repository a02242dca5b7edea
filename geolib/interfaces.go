package geolib

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Provider is an upstream which knows how to geolocate a single IP
// address. Resolver guarantees that it passes only routable addresses.
type Provider interface {
	Name() string
	Lookup(context.Context, net.IP) (ProviderLookupResult, error)
}

// HTTPClient is an interface of a client which should be used by
// providers.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Logger is used by Resolver to report events which are not visible
// through a return value of Resolve.
type Logger interface {
	AddressSkipped(ip string, err error)
	LookupError(ip, provider string, err error)
	ProviderFailure(ip, provider string, err error)
	RateLimited(ip string, err error)
	RetryScheduled(ip string, attempt int, delay time.Duration, err error)
	CircuitStateChanged(from, to CircuitState, failures uint32)
}
