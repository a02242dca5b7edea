package providers

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/9seconds/geoguard/geolib"
)

// DefaultIPAPIURL is a base URL of ip-api.com JSON endpoint.
const DefaultIPAPIURL = "http://ip-api.com/json"

const ipapiFields = "status,message,lat,lon,city,country"

type ipapiResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	City    string   `json:"city"`
	Country string   `json:"country"`
}

type ipapiProvider struct {
	baseURL string
	client  geolib.HTTPClient
}

func (i ipapiProvider) Name() string {
	return NameIPAPI
}

func (i ipapiProvider) Lookup(ctx context.Context, ip net.IP) (geolib.ProviderLookupResult, error) {
	result := geolib.ProviderLookupResult{}
	query := url.Values{}

	query.Set("fields", ipapiFields)

	req, err := http.NewRequestWithContext(ctx,
		http.MethodGet,
		i.baseURL+"/"+ip.String()+"?"+query.Encode(),
		nil)
	if err != nil {
		return result, fmt.Errorf("cannot build a request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("cannot send a request: %w", err)
	}

	defer flushResponse(resp.Body)

	jsonResponse := ipapiResponse{}
	jsonDecoder := jsonAPI.NewDecoder(bufio.NewReader(resp.Body))

	if err := jsonDecoder.Decode(&jsonResponse); err != nil {
		return result, fmt.Errorf("cannot parse a response (%v): %w", err, geolib.ErrPayloadInvalid)
	}

	if jsonResponse.Status == "fail" {
		return result, fmt.Errorf("%s: %w", jsonResponse.Message, geolib.ErrProviderFailure)
	}

	if jsonResponse.Lat == nil || jsonResponse.Lon == nil {
		return result, fmt.Errorf("coordinates are missing: %w", geolib.ErrPayloadInvalid)
	}

	result.Latitude = *jsonResponse.Lat
	result.Longitude = *jsonResponse.Lon
	result.City = jsonResponse.City
	result.Country = jsonResponse.Country

	return result, nil
}

// NewIPAPI returns a provider for ip-api.com compatible endpoints. If
// apiURL is not a valid http or https URL, DefaultIPAPIURL is used.
func NewIPAPI(client geolib.HTTPClient, apiURL string) geolib.Provider {
	return ipapiProvider{
		baseURL: normalizeIPAPIURL(apiURL),
		client:  client,
	}
}

func normalizeIPAPIURL(value string) string {
	parsed, err := url.Parse(strings.TrimSpace(value))

	switch {
	case err != nil, parsed.Host == "":
		return DefaultIPAPIURL
	case parsed.Scheme != "http" && parsed.Scheme != "https":
		return DefaultIPAPIURL
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""

	return strings.TrimRight(parsed.String(), "/")
}
