// Package openweather fetches current conditions from the OpenWeather API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/team-weather-dashboard/internal/domain"
	"github.com/couchcryptid/team-weather-dashboard/internal/observability"
)

// ErrMissingAPIKey is returned by NewClient when no API key is configured.
var ErrMissingAPIKey = errors.New("openweather API key is required")

// Fetcher returns the current observation for a city.
type Fetcher interface {
	Current(ctx context.Context, city, countryCode string) (domain.Observation, error)
}

// APIError is a non-200 response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openweather API error: status %d: %s", e.StatusCode, e.Body)
}

// Client implements Fetcher using the current weather endpoint.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeather client.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Current fetches metric-unit conditions for city, optionally qualified by
// an ISO country code.
func (c *Client) Current(ctx context.Context, city, countryCode string) (domain.Observation, error) {
	location := city
	if countryCode != "" {
		location = city + "," + countryCode
	}
	params := url.Values{
		"q":     {location},
		"appid": {c.apiKey},
		"units": {"metric"},
	}

	start := time.Now()
	obs, err := c.doRequest(ctx, c.baseURL+"/weather?"+params.Encode())
	c.metrics.OpenWeatherDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.OpenWeatherRequests.WithLabelValues("error").Inc()
		c.logger.Error("weather request failed", "city", city, "error", err)
		return domain.Observation{}, err
	}
	c.metrics.OpenWeatherRequests.WithLabelValues("success").Inc()
	c.logger.Info("weather retrieved", "city", city, "country", obs.Sys.Country)
	return obs, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL carries the API key; report the transport error only.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return domain.Observation{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Observation{}, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var obs domain.Observation
	if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
		return domain.Observation{}, fmt.Errorf("decode response: %w", err)
	}
	return obs, nil
}
