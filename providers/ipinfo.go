package providers

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/9seconds/geoguard/geolib"
)

const ipinfoBaseURL = "https://ipinfo.io/"

type ipinfoResponse struct {
	Bogon   bool   `json:"bogon"`
	City    string `json:"city"`
	Country string `json:"country"`
	Loc     string `json:"loc"`
}

type ipinfoProvider struct {
	authToken string
	client    geolib.HTTPClient
}

func (i ipinfoProvider) Name() string {
	return NameIPInfo
}

func (i ipinfoProvider) Lookup(ctx context.Context, ip net.IP) (geolib.ProviderLookupResult, error) {
	result := geolib.ProviderLookupResult{}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ipinfoBaseURL+ip.String(), nil)
	if err != nil {
		return result, fmt.Errorf("cannot build a request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if i.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+i.authToken)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("cannot send a request: %w", err)
	}

	defer flushResponse(resp.Body)

	jsonResponse := ipinfoResponse{}
	jsonDecoder := jsonAPI.NewDecoder(bufio.NewReader(resp.Body))

	if err := jsonDecoder.Decode(&jsonResponse); err != nil {
		return result, fmt.Errorf("cannot parse a response (%v): %w", err, geolib.ErrPayloadInvalid)
	}

	if jsonResponse.Bogon {
		return result, fmt.Errorf("bogon address: %w", geolib.ErrProviderFailure)
	}

	result.Latitude, result.Longitude, err = parseIPInfoLocation(jsonResponse.Loc)
	if err != nil {
		return result, err
	}

	result.City = jsonResponse.City
	result.Country = jsonResponse.Country

	return result, nil
}

// parseIPInfoLocation parses "lat,lng" pair.
func parseIPInfoLocation(value string) (float64, float64, error) {
	chunks := strings.Split(value, ",")
	if len(chunks) != 2 {
		return 0, 0, fmt.Errorf("incorrect location %q: %w", value, geolib.ErrPayloadInvalid)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(chunks[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("incorrect latitude %q: %w", chunks[0], geolib.ErrPayloadInvalid)
	}

	lng, err := strconv.ParseFloat(strings.TrimSpace(chunks[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("incorrect longitude %q: %w", chunks[1], geolib.ErrPayloadInvalid)
	}

	return lat, lng, nil
}

// NewIPInfo returns a provider for ipinfo.io. Auth token is optional
// but anonymous access has a very low quota.
func NewIPInfo(client geolib.HTTPClient, authToken string) geolib.Provider {
	return ipinfoProvider{
		authToken: authToken,
		client:    client,
	}
}
