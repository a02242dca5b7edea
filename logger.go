package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/9seconds/geoguard/geolib"
)

type logger struct {
	lookupLog  zerolog.Logger
	limitLog   zerolog.Logger
	retryLog   zerolog.Logger
	circuitLog zerolog.Logger
	serviceLog zerolog.Logger
}

func (l *logger) AddressSkipped(ip string, err error) {
	l.lookupLog.Debug().Str("ip", ip).Err(err).Msg("Address is not routable")
}

func (l *logger) LookupError(ip, name string, err error) {
	l.lookupLog.Error().Str("provider", name).Str("ip", ip).Err(err).Msg("")
}

func (l *logger) ProviderFailure(ip, name string, err error) {
	l.lookupLog.Info().Str("provider", name).Str("ip", ip).Err(err).Msg("Provider has no data")
}

func (l *logger) RateLimited(ip string, err error) {
	l.limitLog.Warn().Str("ip", ip).Err(err).Msg("")
}

func (l *logger) RetryScheduled(ip string, attempt int, delay time.Duration, err error) {
	l.retryLog.Debug().
		Str("ip", ip).
		Int("attempt", attempt).
		Dur("delay", delay).
		Err(err).
		Msg("Retry is scheduled")
}

func (l *logger) CircuitStateChanged(from, to geolib.CircuitState, failures uint32) {
	event := l.circuitLog.Info()

	if to == geolib.CircuitOpen {
		event = l.circuitLog.Warn()
	}

	event.Stringer("from", from).
		Stringer("to", to).
		Uint32("failures", failures).
		Msg("Circuit breaker state has changed")
}

func (l *logger) Started(listen string) {
	l.serviceLog.Info().Str("listen", listen).Msg("Server has started")
}

func (l *logger) Fatal(err error) {
	l.serviceLog.Fatal().Err(err).Msg("")
}

func newLogger(debug bool) *logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	base := zerolog.New(os.Stderr).Level(level)

	return &logger{
		lookupLog:  base.With().Timestamp().Str("event_name", "lookup").Logger(),
		limitLog:   base.With().Timestamp().Str("event_name", "rate_limit").Logger(),
		retryLog:   base.With().Timestamp().Str("event_name", "retry").Logger(),
		circuitLog: base.With().Timestamp().Str("event_name", "circuit").Logger(),
		serviceLog: base.With().Timestamp().Str("event_name", "service").Logger(),
	}
}
