// Package openmeteo fetches the current relative humidity from the
// Open-Meteo forecast API. The API needs no credential.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/envirolab/infrascan/internal/adapter/httpx"
	"github.com/envirolab/infrascan/internal/domain"
	"github.com/envirolab/infrascan/internal/observability"
)

// Client queries the Open-Meteo forecast endpoint.
type Client struct {
	policy  httpx.Policy
	baseURL string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient creates an Open-Meteo client with an explicit request timeout
// and the shared single-retry policy.
func NewClient(timeout, backoff time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	c := &Client{
		baseURL: "https://api.open-meteo.com/v1/forecast",
		logger:  logger,
		metrics: metrics,
	}
	c.policy = httpx.Policy{
		Client:  &http.Client{Timeout: timeout},
		Clock:   clock,
		Backoff: backoff,
		Logger:  logger,
		OnRetry: func() { metrics.APIRetries.WithLabelValues("openmeteo").Inc() },
	}
	return c
}

// CurrentHumidity returns the current relative humidity at 2m for the
// coordinate. A missing field in an otherwise successful response is an
// error, never a default value.
func (c *Client) CurrentHumidity(ctx context.Context, coord domain.Coordinate) (int, error) {
	params := url.Values{
		"latitude":  {strconv.FormatFloat(coord.Lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(coord.Lon, 'f', -1, 64)},
		"current":   {"relative_humidity_2m"},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	start := time.Now()
	resp, err := c.policy.Do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	})
	c.metrics.APIDuration.WithLabelValues("openmeteo").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.APIRequests.WithLabelValues("openmeteo", "error").Inc()
		return 0, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.APIRequests.WithLabelValues("openmeteo", "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("weather API error: status %d: %s", resp.StatusCode, body)
	}

	var weatherResp response
	if err := json.NewDecoder(resp.Body).Decode(&weatherResp); err != nil {
		c.metrics.APIRequests.WithLabelValues("openmeteo", "error").Inc()
		return 0, fmt.Errorf("decode weather response: %w", err)
	}

	if weatherResp.Current == nil || weatherResp.Current.RelativeHumidity2m == nil {
		c.metrics.APIRequests.WithLabelValues("openmeteo", "error").Inc()
		return 0, fmt.Errorf("weather response missing current.relative_humidity_2m")
	}

	c.metrics.APIRequests.WithLabelValues("openmeteo", "success").Inc()
	return *weatherResp.Current.RelativeHumidity2m, nil
}

// Open-Meteo API response types. Pointers distinguish a missing field from
// a genuine zero reading.

type response struct {
	Current *current `json:"current"`
}

type current struct {
	RelativeHumidity2m *int `json:"relative_humidity_2m"`
}
