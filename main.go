package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/afero"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/9seconds/geoguard/geolib"
)

const (
	version = "0.1.0"

	shutdownTimeout = 10 * time.Second
)

var (
	app = kingpin.New(
		"geoguard",
		"Resilient IP geolocation service which protects its upstream")

	debug = app.Flag("debug", "Run in debug mode.").
		Short('d').
		Envar("GEOGUARD_DEBUG").
		Bool()

	serveCommand    = app.Command("serve", "Run HTTP API.")
	serveConfigPath = serveCommand.Arg("config-path", "Path to the config.").
			Required().
			String()

	resolveCommand    = app.Command("resolve", "Resolve given addresses and exit.")
	resolveConfigPath = resolveCommand.Arg("config-path", "Path to the config.").
				Required().
				String()
	resolveIPs = resolveCommand.Arg("ip", "Addresses to resolve.").
			Required().
			Strings()
)

func init() {
	app.Version(version)
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))
	log := newLogger(*debug)

	var err error

	switch command {
	case serveCommand.FullCommand():
		err = mainServe(log)
	case resolveCommand.FullCommand():
		err = mainResolve(log)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func mainServe(log *logger) error {
	conf, err := parseConfig(afero.NewOsFs(), *serveConfigPath)
	if err != nil {
		return fmt.Errorf("cannot parse config: %w", err)
	}

	resolver, err := makeResolver(conf, log)
	if err != nil {
		return fmt.Errorf("cannot create resolver: %w", err)
	}

	defer resolver.Shutdown()

	ctx, cancel := makeRootContext()
	defer cancel()

	server := &http.Server{
		Addr: conf.GetListen(),
		Handler: geolib.NewHTTPHandler(resolver, geolib.HTTPHandlerOpts{
			CORSOrigins:     conf.GetCORSOrigins(),
			AdminMiddleware: makeAdminMiddleware(conf),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		server.Shutdown(shutdownCtx) // nolint: errcheck
	}()

	log.Started(conf.GetListen())

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server has failed: %w", err)
	}

	return nil
}

func mainResolve(log *logger) error {
	conf, err := parseConfig(afero.NewOsFs(), *resolveConfigPath)
	if err != nil {
		return fmt.Errorf("cannot parse config: %w", err)
	}

	resolver, err := makeResolver(conf, log)
	if err != nil {
		return fmt.Errorf("cannot create resolver: %w", err)
	}

	defer resolver.Shutdown()

	ctx, cancel := makeRootContext()
	defer cancel()

	encoder := json.NewEncoder(os.Stdout)

	encoder.SetEscapeHTML(false)

	for _, v := range resolver.ResolveAll(ctx, *resolveIPs) {
		encoder.Encode(v) // nolint: errcheck
	}

	return nil
}
