package geolib

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// MaxLabelLength is a maximal length of city and country names in
// runes.
const MaxLabelLength = 100

var labelReplacer = strings.NewReplacer(
	"<", "",
	">", "",
	`"`, "",
	"'", "",
	"&", "")

// Coordinate is a resolved geolocation of some address.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
}

// Valid checks that latitude and longitude are within their ranges.
func (c Coordinate) Valid() bool {
	return validLatitude(c.Latitude) && validLongitude(c.Longitude)
}

// ProviderLookupResult is a raw result returned by Provider. Resolver
// validates and sanitizes it before caching.
type ProviderLookupResult struct {
	Latitude  float64
	Longitude float64
	City      string
	Country   string
}

// ResolveResult is an item of batch resolving. Result is nil if address
// is unresolvable.
type ResolveResult struct {
	IP     string      `json:"ip"`
	Result *Coordinate `json:"result"`
}

func newCoordinate(res ProviderLookupResult) (*Coordinate, error) {
	if !validLatitude(res.Latitude) || !validLongitude(res.Longitude) {
		return nil, fmt.Errorf("coordinates (%v, %v) are out of range: %w",
			res.Latitude, res.Longitude, ErrPayloadInvalid)
	}

	return &Coordinate{
		Latitude:  res.Latitude,
		Longitude: res.Longitude,
		City:      sanitizeLabel(res.City),
		Country:   sanitizeLabel(res.Country),
	}, nil
}

func sanitizeLabel(value string) string {
	value = strings.TrimSpace(labelReplacer.Replace(value))

	if utf8.RuneCountInString(value) > MaxLabelLength {
		value = string([]rune(value)[:MaxLabelLength])
	}

	return value
}

func validLatitude(value float64) bool {
	return !math.IsNaN(value) && value >= -90 && value <= 90
}

func validLongitude(value float64) bool {
	return !math.IsNaN(value) && value >= -180 && value <= 180
}
