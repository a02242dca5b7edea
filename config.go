package main

import (
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hjson/hjson-go/v4"
	"github.com/juju/errors"
	"github.com/spf13/afero"

	"github.com/9seconds/geoguard/geolib"
	"github.com/9seconds/geoguard/providers"
)

const DefaultListen = "127.0.0.1:8080"

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalJSON(b []byte) error {
	var v interface{}

	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("cannot unmarshal duration: %w", err)
	}

	vv, ok := v.(string)
	if !ok {
		return fmt.Errorf("incorrect duration: %v", v)
	}

	dur, err := time.ParseDuration(vv)
	if err != nil {
		return fmt.Errorf("cannot parse duration: %w", err)
	}

	if dur < 0 {
		return fmt.Errorf("duration %v is negative", dur)
	}

	d.Duration = dur

	return nil
}

type configSource struct {
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lng"`
	City      string   `json:"city"`
	Country   string   `json:"country"`
}

type configAdmin struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type config struct {
	Listen               string        `json:"listen"`
	Source               *configSource `json:"source"`
	Provider             string        `json:"provider"`
	ProviderToken        string        `json:"provider_token"`
	APIURL               string        `json:"api_url"`
	APITimeout           duration      `json:"api_timeout"`
	MaxRetries           uint          `json:"max_retries"`
	RetryDelay           duration      `json:"retry_delay"`
	MaxCacheSize         uint          `json:"max_cache_size"`
	MaxRequestsPerMinute uint          `json:"max_requests_per_minute"`
	MinRequestDelay      duration      `json:"min_request_delay"`
	MaxRateLimitWait     duration      `json:"max_rate_limit_wait"`
	WorkerPoolSize       uint          `json:"worker_pool_size"`
	UserAgent            string        `json:"user_agent"`
	Admin                configAdmin   `json:"admin"`
	CORSOrigins          []string      `json:"cors_origins"`
}

func (c config) GetListen() string {
	if c.Listen != "" {
		return c.Listen
	}

	return DefaultListen
}

func (c config) GetSource() geolib.Coordinate {
	return geolib.Coordinate{
		Latitude:  *c.Source.Latitude,
		Longitude: *c.Source.Longitude,
		City:      c.Source.City,
		Country:   c.Source.Country,
	}
}

func (c config) GetProvider() string {
	if c.Provider != "" {
		return c.Provider
	}

	return providers.NameIPAPI
}

func (c config) GetAPIURL() string {
	if c.APIURL != "" {
		return c.APIURL
	}

	return providers.DefaultIPAPIURL
}

func (c config) GetAPITimeout() time.Duration {
	if c.APITimeout.Duration == 0 {
		return geolib.DefaultAPITimeout
	}

	return c.APITimeout.Duration
}

func (c config) GetUserAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}

	return "geoguard/" + version
}

func (c config) GetCORSOrigins() []string {
	return c.CORSOrigins
}

func (c config) GetResolverOpts() geolib.Opts {
	return geolib.Opts{
		Source:               c.GetSource(),
		APITimeout:           c.GetAPITimeout(),
		MaxRetries:           int(c.MaxRetries),
		RetryDelay:           c.RetryDelay.Duration,
		MaxCacheSize:         int(c.MaxCacheSize),
		MaxRequestsPerMinute: int(c.MaxRequestsPerMinute),
		MinRequestDelay:      c.MinRequestDelay.Duration,
		MaxRateLimitWait:     c.MaxRateLimitWait.Duration,
		WorkerPoolSize:       int(c.WorkerPoolSize),
	}
}

func parseConfig(fs afero.Fs, path string) (*config, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Annotate(err, "cannot read file")
	}

	rawMap := map[string]interface{}{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(content), &rawMap); err != nil {
			return nil, errors.Annotate(err, "cannot parse toml")
		}
	default:
		if err := hjson.Unmarshal(content, &rawMap); err != nil {
			return nil, errors.Annotate(err, "cannot parse json")
		}
	}

	rawBytes, err := json.Marshal(rawMap)
	if err != nil {
		return nil, errors.Annotate(err, "cannot normalize config")
	}

	conf := &config{}

	if err := json.Unmarshal(rawBytes, conf); err != nil {
		return nil, errors.Annotate(err, "incorrect config")
	}

	if err := validateConfig(conf); err != nil {
		return nil, errors.Annotate(err, "invalid value")
	}

	return conf, nil
}

func validateConfig(conf *config) error {
	if _, _, err := net.SplitHostPort(conf.GetListen()); err != nil {
		return errors.Annotate(err, "incorrect host:port for listen")
	}

	switch {
	case conf.Source == nil:
		return errors.New("source is not defined")
	case conf.Source.Latitude == nil || conf.Source.Longitude == nil:
		return errors.New("source should have both lat and lng")
	}

	if source := conf.GetSource(); !source.Valid() {
		return errors.Errorf("source coordinate (%v, %v) is out of range",
			source.Latitude, source.Longitude)
	}

	switch conf.GetProvider() {
	case providers.NameIPAPI, providers.NameIPInfo:
	default:
		return errors.Errorf("unknown provider %s", conf.GetProvider())
	}

	if conf.Admin.User == "" && conf.Admin.Password != "" {
		return errors.New("admin password is set without a user")
	}

	return nil
}
