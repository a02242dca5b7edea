package geolib_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mccutchen/go-httpbin/v2/httpbin"
	"github.com/stretchr/testify/suite"

	"github.com/9seconds/geoguard/geolib"
)

type HTTPClientTestSuite struct {
	suite.Suite

	httpbinEndpoint *httptest.Server
	c               geolib.HTTPClient
}

func (suite *HTTPClientTestSuite) SetupSuite() {
	suite.httpbinEndpoint = httptest.NewServer(httpbin.New().Handler())
}

func (suite *HTTPClientTestSuite) TearDownSuite() {
	suite.httpbinEndpoint.Close()
}

func (suite *HTTPClientTestSuite) SetupTest() {
	client := suite.httpbinEndpoint.Client()
	client.Timeout = 200 * time.Millisecond

	suite.c = geolib.NewHTTPClient(client, "test-agent")
}

func (suite *HTTPClientTestSuite) TestUserAgent() {
	req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/user-agent", nil)
	resp, err := suite.c.Do(req)

	suite.NoError(err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)

	suite.NoError(err)
	suite.Contains(string(body), "test-agent")
}

func (suite *HTTPClientTestSuite) TestBadStatus() {
	req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/status/500", nil)
	_, err := suite.c.Do(req)

	suite.True(errors.Is(err, geolib.ErrUpstreamHTTP))

	var statusErr *geolib.StatusError

	suite.True(errors.As(err, &statusErr))
	suite.Equal(http.StatusInternalServerError, statusErr.StatusCode)
}

func (suite *HTTPClientTestSuite) TestTimeout() {
	req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/delay/1", nil)
	_, err := suite.c.Do(req)

	suite.True(errors.Is(err, geolib.ErrUpstreamTimeout))
}

func (suite *HTTPClientTestSuite) TestCannotDial() {
	req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"1"+"/status/500", nil)
	_, err := suite.c.Do(req)

	suite.Error(err)
	suite.False(errors.Is(err, geolib.ErrUpstreamHTTP))
}

func TestHTTPClient(t *testing.T) {
	suite.Run(t, &HTTPClientTestSuite{})
}
