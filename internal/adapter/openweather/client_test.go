package openweather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/team-weather-dashboard/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

const austinResponse = `{
  "name": "Austin",
  "timezone": -18000,
  "sys": {"country": "US", "sunrise": 1717240000, "sunset": 1717290000},
  "main": {"temp": 31.2, "feels_like": 33.0, "humidity": 48, "pressure": 1012},
  "weather": [{"main": "Clouds", "description": "scattered clouds"}],
  "wind": {"speed": 4.1, "deg": 180},
  "clouds": {"all": 40},
  "visibility": 10000
}`

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(testAPIKey, baseURL, 5*time.Second,
		observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestClient_Current_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "Austin,US", r.URL.Query().Get("q"))
		assert.Equal(t, testAPIKey, r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, austinResponse)
	}))
	defer srv.Close()

	obs, err := testClient(t, srv.URL+"/").Current(context.Background(), "Austin", "US")
	require.NoError(t, err)

	assert.Equal(t, "Austin", obs.Name)
	assert.Equal(t, "US", obs.Sys.Country)
	assert.InDelta(t, 31.2, obs.Main.Temp, 1e-9)
	require.Len(t, obs.Weather, 1)
	assert.Equal(t, "scattered clouds", obs.Weather[0].Description)
	require.NotNil(t, obs.Wind)
	assert.InDelta(t, 4.1, obs.Wind.Speed, 1e-9)
	require.NotNil(t, obs.Visibility)
	assert.InDelta(t, 10000, *obs.Visibility, 1e-9)
}

func TestClient_Current_NoCountry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Lima", r.URL.Query().Get("q"))
		_, _ = io.WriteString(w, `{"name":"Lima"}`)
	}))
	defer srv.Close()

	obs, err := testClient(t, srv.URL).Current(context.Background(), "Lima", "")
	require.NoError(t, err)
	assert.Equal(t, "Lima", obs.Name)
	assert.Nil(t, obs.Wind)
}

func TestClient_Current_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"cod":"404","message":"city not found"}`)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Current(context.Background(), "Atlantis", "")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "city not found")
}

func TestClient_Current_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{not json`)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL).Current(context.Background(), "Austin", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_Current_TransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := testClient(t, url).Current(context.Background(), "Austin", "")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testAPIKey)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient("", "http://example.invalid", time.Second, observability.NewMetricsForTesting(), slog.Default())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
