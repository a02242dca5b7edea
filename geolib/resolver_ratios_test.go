package geolib_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/9seconds/geoguard/geolib"
	"github.com/9seconds/geoguard/providers"
)

// Default options scaled down by 10.
var scaledDefaultOpts = geolib.Opts{
	Source: geolib.Coordinate{
		Latitude:  52.52,
		Longitude: 13.405,
	},
	APITimeout:           geolib.DefaultAPITimeout / 10,
	MaxRetries:           geolib.DefaultMaxRetries,
	RetryDelay:           geolib.DefaultRetryDelay / 10,
	MaxRequestsPerMinute: geolib.DefaultMaxRequestsPerMinute,
	MinRequestDelay:      geolib.DefaultMinRequestDelay / 10,
	MaxRateLimitWait:     geolib.DefaultMaxRateLimitWait / 10,
	MaxFailures:          geolib.DefaultMaxFailures,
	ResetTimeout:         geolib.DefaultResetTimeout / 10,
	WorkerPoolSize:       4,
}

type ResolverDefaultRatiosTestSuite struct {
	suite.Suite

	r            *geolib.Resolver
	providerMock *ProviderMock
	loggerMock   *LoggerMock
}

func (suite *ResolverDefaultRatiosTestSuite) SetupTest() {
	suite.providerMock = &ProviderMock{}
	suite.loggerMock = &LoggerMock{}

	suite.providerMock.On("Name").Return("providerMock").Maybe()
	suite.loggerMock.AllowAll()

	r, err := geolib.NewResolver(suite.providerMock, suite.loggerMock, scaledDefaultOpts)
	if err != nil {
		panic(err)
	}

	suite.r = r
}

func (suite *ResolverDefaultRatiosTestSuite) TearDownTest() {
	suite.r.Shutdown()

	suite.providerMock.AssertExpectations(suite.T())
	suite.loggerMock.AssertExpectations(suite.T())
}

func (suite *ResolverDefaultRatiosTestSuite) TestTransientFailureIsRetried() {
	suite.providerMock.
		On("Lookup", mock.Anything, parseIP("8.8.8.8")).
		Return(geolib.ProviderLookupResult{}, io.EOF).
		Once()
	suite.providerMock.
		On("Lookup", mock.Anything, parseIP("8.8.8.8")).
		Return(mountainView, nil).
		Once()

	suite.NotNil(suite.r.Resolve(context.Background(), "8.8.8.8"))

	suite.loggerMock.AssertCalled(suite.T(), "RetryScheduled",
		"8.8.8.8", 1, scaledDefaultOpts.RetryDelay, mock.Anything)

	stats := suite.r.Stats()

	suite.EqualValues(2, stats.APICalls)
	suite.EqualValues(0, stats.RateLimitHits)
	suite.EqualValues(0, stats.CircuitFailures)
	suite.Equal(1, stats.CacheSize)
}

func (suite *ResolverDefaultRatiosTestSuite) TestPersistentFailureIsCached() {
	suite.providerMock.
		On("Lookup", mock.Anything, parseIP("8.8.8.8")).
		Return(geolib.ProviderLookupResult{}, io.EOF).
		Times(3)

	suite.Nil(suite.r.Resolve(context.Background(), "8.8.8.8"))
	suite.Nil(suite.r.Resolve(context.Background(), "8.8.8.8"))

	suite.loggerMock.AssertCalled(suite.T(), "RetryScheduled",
		"8.8.8.8", 2, 2*scaledDefaultOpts.RetryDelay, mock.Anything)

	stats := suite.r.Stats()

	suite.EqualValues(3, stats.APICalls)
	suite.EqualValues(3, stats.APIFailures)
	suite.EqualValues(0, stats.RateLimitHits)
	suite.EqualValues(1, stats.CircuitFailures)
	suite.EqualValues(1, stats.CacheHits)
	suite.Equal(1, stats.CacheSize)
}

func (suite *ResolverDefaultRatiosTestSuite) TestCircuitTripsOnFastFailures() {
	suite.providerMock.
		On("Lookup", mock.Anything, mock.Anything).
		Return(geolib.ProviderLookupResult{}, io.EOF).
		Times(3 * geolib.DefaultMaxFailures)

	for i := 1; i <= geolib.DefaultMaxFailures; i++ {
		suite.Nil(suite.r.Resolve(context.Background(), fmt.Sprintf("1.1.1.%d", i)))
	}

	suite.Nil(suite.r.Resolve(context.Background(), "1.1.1.100"))

	stats := suite.r.Stats()

	suite.Equal(geolib.CircuitOpen, stats.CircuitState)
	suite.EqualValues(geolib.DefaultMaxFailures, stats.CircuitFailures)
	suite.EqualValues(3*geolib.DefaultMaxFailures, stats.APICalls)
	suite.EqualValues(0, stats.RateLimitHits)
	suite.EqualValues(1, stats.CircuitRejections)
	suite.Equal(geolib.DefaultMaxFailures, stats.CacheSize)
}

func (suite *ResolverDefaultRatiosTestSuite) TestSpacing() {
	suite.providerMock.
		On("Lookup", mock.Anything, mock.Anything).
		Return(mountainView, nil).
		Twice()

	suite.NotNil(suite.r.Resolve(context.Background(), "1.1.1.1"))
	suite.Nil(suite.r.Resolve(context.Background(), "1.1.1.2"))
	suite.EqualValues(1, suite.r.Stats().RateLimitHits)
	suite.Equal(1, suite.r.Stats().CacheSize)

	time.Sleep(scaledDefaultOpts.MinRequestDelay - scaledDefaultOpts.MaxRateLimitWait/2)

	suite.NotNil(suite.r.Resolve(context.Background(), "1.1.1.2"))

	stats := suite.r.Stats()

	suite.EqualValues(2, stats.APICalls)
	suite.EqualValues(1, stats.RateLimitHits)
	suite.Equal(2, stats.CacheSize)
}

func TestResolverDefaultRatios(t *testing.T) {
	suite.Run(t, &ResolverDefaultRatiosTestSuite{})
}

type ResolverUpstreamTestSuite struct {
	suite.Suite

	r          *geolib.Resolver
	transport  *httpmock.MockTransport
	loggerMock *LoggerMock
}

func (suite *ResolverUpstreamTestSuite) SetupTest() {
	suite.transport = httpmock.NewMockTransport()
	suite.loggerMock = &LoggerMock{}

	client := geolib.NewHTTPClient(&http.Client{Transport: suite.transport}, "test-agent")

	r, err := geolib.NewResolver(providers.NewIPAPI(client, ""), suite.loggerMock, geolib.Opts{
		APITimeout:           50 * time.Millisecond,
		MaxRetries:           1,
		RetryDelay:           10 * time.Millisecond,
		MinRequestDelay:      time.Millisecond,
		MaxRequestsPerMinute: 1000,
		WorkerPoolSize:       4,
	})
	if err != nil {
		panic(err)
	}

	suite.r = r
}

func (suite *ResolverUpstreamTestSuite) TearDownTest() {
	suite.r.Shutdown()

	suite.loggerMock.AssertExpectations(suite.T())
}

func (suite *ResolverUpstreamTestSuite) TestHardTimeout() {
	suite.transport.RegisterResponder(http.MethodGet, `=~^http://ip-api\.com/json/8\.8\.8\.8`,
		func(req *http.Request) (*http.Response, error) {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(time.Second):
				return httpmock.NewStringResponse(http.StatusOK,
					`{"status":"success","lat":37.386,"lon":-122.0838}`), nil
			}
		})

	suite.loggerMock.
		On("LookupError", "8.8.8.8", providers.NameIPAPI, mock.MatchedBy(func(err error) bool {
			return errors.Is(err, geolib.ErrUpstreamTimeout)
		})).
		Once()
	suite.loggerMock.AllowAll()

	started := time.Now()

	suite.Nil(suite.r.Resolve(context.Background(), "8.8.8.8"))
	suite.Less(time.Since(started), 500*time.Millisecond)
	suite.Equal(2, suite.transport.GetTotalCallCount())

	stats := suite.r.Stats()

	suite.EqualValues(2, stats.APICalls)
	suite.EqualValues(2, stats.APIFailures)
	suite.EqualValues(1, stats.CircuitFailures)
	suite.Equal(1, stats.CacheSize)
}

func (suite *ResolverUpstreamTestSuite) TestFastUpstream() {
	suite.transport.RegisterResponder(http.MethodGet, `=~^http://ip-api\.com/json/8\.8\.8\.8`,
		httpmock.NewStringResponder(http.StatusOK,
			`{"status":"success","lat":37.386,"lon":-122.0838,"city":"Mountain View","country":"US"}`))
	suite.loggerMock.AllowAll()

	value := suite.r.Resolve(context.Background(), "8.8.8.8")

	suite.NotNil(value)
	suite.Equal("Mountain View", value.City)
	suite.Equal(1, suite.transport.GetTotalCallCount())
}

func TestResolverUpstream(t *testing.T) {
	suite.Run(t, &ResolverUpstreamTestSuite{})
}
