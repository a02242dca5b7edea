package geolib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

type httpClient struct {
	userAgent string
	client    *http.Client
}

func (h httpClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		if resp != nil {
			flushResponse(resp)
		}

		var netErr net.Error

		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}

		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		flushResponse(resp)

		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	return resp, nil
}

func flushResponse(resp *http.Response) {
	io.Copy(io.Discard, resp.Body) // nolint: errcheck
	resp.Body.Close()
}

// NewHTTPClient prepares a new HTTP client for providers. It sets a
// user agent and converts non-successful statuses into *StatusError.
//
// A hard timeout of upstream request is a timeout of the given
// client. Timeouts are reported as errors wrapping ErrUpstreamTimeout.
func NewHTTPClient(client *http.Client, userAgent string) HTTPClient {
	return httpClient{
		userAgent: userAgent,
		client:    client,
	}
}
