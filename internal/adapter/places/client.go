// Package places implements nearest-infrastructure lookup using the Google
// Places Nearby Search API.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/envirolab/infrascan/internal/adapter/httpx"
	"github.com/envirolab/infrascan/internal/domain"
	"github.com/envirolab/infrascan/internal/observability"
)

// keyword is the fixed civic-infrastructure search set. With rankby=distance
// the API defines the first result as the nearest match.
const keyword = "school,park,hospital,police,fire station,power station,water treatment"

// ErrNoResults reports that the search succeeded but matched nothing near
// the coordinate (ZERO_RESULTS or an empty result list).
var ErrNoResults = errors.New("no nearby infrastructure found")

// Client queries the Places Nearby Search API.
type Client struct {
	key     string
	policy  httpx.Policy
	baseURL string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient creates a Places client with an explicit request timeout and the
// shared single-retry policy.
func NewClient(key string, timeout, backoff time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	c := &Client{
		key:     key,
		baseURL: "https://maps.googleapis.com/maps/api/place/nearbysearch/json",
		logger:  logger,
		metrics: metrics,
	}
	c.policy = httpx.Policy{
		Client:  &http.Client{Timeout: timeout},
		Clock:   clock,
		Backoff: backoff,
		Logger:  logger,
		OnRetry: func() { metrics.APIRetries.WithLabelValues("places").Inc() },
	}
	return c
}

// FindNearest returns the nearest infrastructure entry to the coordinate.
// The result list is ranked by distance, so only the first entry is read.
func (c *Client) FindNearest(ctx context.Context, coord domain.Coordinate) (domain.Place, error) {
	params := url.Values{
		"location": {coord.String()},
		"rankby":   {"distance"},
		"keyword":  {keyword},
		"key":      {c.key},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	start := time.Now()
	resp, err := c.policy.Do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	})
	c.metrics.APIDuration.WithLabelValues("places").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.APIRequests.WithLabelValues("places", "error").Inc()
		return domain.Place{}, fmt.Errorf("places request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.APIRequests.WithLabelValues("places", "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return domain.Place{}, fmt.Errorf("places API error: status %d: %s", resp.StatusCode, body)
	}

	var searchResp response
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		c.metrics.APIRequests.WithLabelValues("places", "error").Inc()
		return domain.Place{}, fmt.Errorf("decode places response: %w", err)
	}

	if searchResp.Status != "OK" || len(searchResp.Results) == 0 {
		c.metrics.APIRequests.WithLabelValues("places", "error").Inc()
		if searchResp.Status == "ZERO_RESULTS" || (searchResp.Status == "OK" && len(searchResp.Results) == 0) {
			return domain.Place{}, fmt.Errorf("%w: status %s", ErrNoResults, searchResp.Status)
		}
		return domain.Place{}, fmt.Errorf("places API status %s: %s", searchResp.Status, searchResp.ErrorMessage)
	}

	c.metrics.APIRequests.WithLabelValues("places", "success").Inc()

	nearest := searchResp.Results[0]
	name := nearest.Name
	if name == "" {
		name = "N/A"
	}
	return domain.Place{
		Name:          name,
		Category:      domain.FormatCategory(nearest.Types),
		RawCategories: nearest.Types,
	}, nil
}

// Places API response types.

type response struct {
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message"`
	Results      []result `json:"results"`
}

type result struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`
}
