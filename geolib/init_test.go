package geolib_test

import (
	"context"
	"net"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/9seconds/geoguard/geolib"
)

type ProviderMock struct {
	mock.Mock
}

func (m *ProviderMock) Lookup(ctx context.Context, ip net.IP) (geolib.ProviderLookupResult, error) {
	args := m.Called(ctx, ip)

	return args.Get(0).(geolib.ProviderLookupResult), args.Error(1)
}

func (m *ProviderMock) Name() string {
	return m.Called().String(0)
}

type LoggerMock struct {
	mock.Mock
}

func (m *LoggerMock) AddressSkipped(ip string, err error) {
	m.Called(ip, err)
}

func (m *LoggerMock) LookupError(ip, name string, err error) {
	m.Called(ip, name, err)
}

func (m *LoggerMock) ProviderFailure(ip, name string, err error) {
	m.Called(ip, name, err)
}

func (m *LoggerMock) RateLimited(ip string, err error) {
	m.Called(ip, err)
}

func (m *LoggerMock) RetryScheduled(ip string, attempt int, delay time.Duration, err error) {
	m.Called(ip, attempt, delay, err)
}

func (m *LoggerMock) CircuitStateChanged(from, to geolib.CircuitState, failures uint32) {
	m.Called(from, to, failures)
}

func (m *LoggerMock) AllowAll() {
	m.On("AddressSkipped", mock.Anything, mock.Anything).Maybe()
	m.On("LookupError", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("ProviderFailure", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("RateLimited", mock.Anything, mock.Anything).Maybe()
	m.On("RetryScheduled", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("CircuitStateChanged", mock.Anything, mock.Anything, mock.Anything).Maybe()
}

var mountainView = geolib.ProviderLookupResult{
	Latitude:  37.386,
	Longitude: -122.0838,
	City:      "Mountain View",
	Country:   "US",
}

func parseIP(value string) net.IP {
	ip := net.ParseIP(value)

	if v4 := ip.To4(); v4 != nil {
		return v4
	}

	return ip
}
