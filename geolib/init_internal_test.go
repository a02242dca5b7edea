package geolib

import (
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

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

func (m *LoggerMock) CircuitStateChanged(from, to CircuitState, failures uint32) {
	m.Called(from, to, failures)
}

type fakeClock struct {
	mutex sync.Mutex
	now   time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.now = f.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now: time.Date(2020, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}
