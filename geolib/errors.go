package geolib

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput is returned for empty or oversized addresses.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPrivateAddress marks addresses which are not globally routable
	// or ambiguous. They are never sent upstream.
	ErrPrivateAddress = errors.New("private or reserved address")

	// ErrRateLimited is an internal signal of the rate limiter. It is
	// never retried and never cached.
	ErrRateLimited = errors.New("rate limit exceeded")

	ErrCircuitBreakerOpened = errors.New("circuit breaker is opened")

	// ErrCircuitBreakerIgnore wraps errors which should not affect a
	// state of the circuit breaker.
	ErrCircuitBreakerIgnore = errors.New("ignored by circuit breaker")

	ErrUpstreamTimeout = errors.New("upstream has timed out")
	ErrUpstreamHTTP    = errors.New("upstream has responded with error")

	// ErrProviderFailure is a soft failure reported by provider itself,
	// like {"status": "fail"} of ip-api. Provider is healthy, it just
	// has no data.
	ErrProviderFailure = errors.New("provider has no data")

	// ErrPayloadInvalid is returned if provider response has missing or
	// out of range coordinates.
	ErrPayloadInvalid = errors.New("invalid provider payload")
)

// StatusError is returned by HTTPClient on non-successful HTTP status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (s *StatusError) Error() string {
	return fmt.Sprintf("netloc has responded with %s", s.Status)
}

func (s *StatusError) Unwrap() error {
	return ErrUpstreamHTTP
}

type jsonHTTPError struct {
	Error struct {
		Message string `json:"message"`
		Context string `json:"context"`
	} `json:"error"`
}

type httpError struct {
	message    string
	err        error
	statusCode int
}

func (h *httpError) Message() string {
	if h == nil {
		return ""
	}

	return h.message
}

func (h *httpError) Err() string {
	if err := errors.Unwrap(h); err != nil {
		return err.Error()
	}

	return ""
}

func (h *httpError) StatusCode() int {
	if h != nil && h.statusCode != 0 {
		return h.statusCode
	}

	return http.StatusInternalServerError
}

func (h *httpError) Unwrap() error {
	if h == nil {
		return nil
	}

	return h.err
}

func (h *httpError) Error() string {
	switch {
	case h == nil:
		return ""
	case h.err != nil && h.message != "":
		return h.message + ": " + h.err.Error()
	case h.err != nil:
		return h.err.Error()
	}

	return h.message
}

func (h *httpError) MarshalJSON() ([]byte, error) {
	value := jsonHTTPError{}
	value.Error.Message = h.Message()
	value.Error.Context = h.Err()

	return json.Marshal(&value)
}
