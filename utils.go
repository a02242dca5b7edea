package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/9seconds/geoguard/geolib"
	"github.com/9seconds/geoguard/providers"
)

func makeRootContext() (context.Context, context.CancelFunc) {
	rootCtx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)

	go func() {
		for range sigChan {
			cancel()
		}
	}()

	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	return rootCtx, cancel
}

func makeHTTPClient(conf *config) geolib.HTTPClient {
	return geolib.NewHTTPClient(&http.Client{
		Timeout: conf.GetAPITimeout(),
	}, conf.GetUserAgent())
}

func makeProvider(conf *config) (geolib.Provider, error) {
	httpClient := makeHTTPClient(conf)

	switch conf.GetProvider() {
	case providers.NameIPAPI:
		return providers.NewIPAPI(httpClient, conf.GetAPIURL()), nil
	case providers.NameIPInfo:
		return providers.NewIPInfo(httpClient, conf.ProviderToken), nil
	}

	return nil, fmt.Errorf("unsupported provider name: %s", conf.GetProvider())
}

func makeResolver(conf *config, log geolib.Logger) (*geolib.Resolver, error) {
	provider, err := makeProvider(conf)
	if err != nil {
		return nil, err
	}

	return geolib.NewResolver(provider, log, conf.GetResolverOpts())
}

func makeAdminMiddleware(conf *config) func(http.Handler) http.Handler {
	if conf.Admin.User == "" {
		return nil
	}

	return newBasicAuthMiddleware(conf.Admin.User, conf.Admin.Password)
}
