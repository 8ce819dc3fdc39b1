// Package gemini generates the structured infrastructure narrative using the
// Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/envirolab/infrascan/internal/adapter/httpx"
	"github.com/envirolab/infrascan/internal/domain"
	"github.com/envirolab/infrascan/internal/observability"
)

// ErrMissingKey reports a reply that parsed as JSON but lacks one of the four
// required analysis keys. The run fails closed rather than emitting a
// partial report.
var ErrMissingKey = errors.New("analysis reply missing required key")

// requiredKeys are the exact keys the prompt requests.
var requiredKeys = []string{"ai_summary", "resources_used", "impact_reduction", "is_critical"}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	key     string
	model   string
	policy  httpx.Policy
	baseURL string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient creates a Gemini client. The model name is configurable so quota
// or deprecation issues never require a rebuild.
func NewClient(key, model string, timeout, backoff time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	c := &Client{
		key:     key,
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com",
		logger:  logger,
		metrics: metrics,
	}
	c.policy = httpx.Policy{
		Client:  &http.Client{Timeout: timeout},
		Clock:   clock,
		Backoff: backoff,
		Logger:  logger,
		OnRetry: func() { metrics.APIRetries.WithLabelValues("gemini").Inc() },
	}
	return c
}

// GenerateAnalysis prompts the model with the place identity and humidity
// reading and parses its reply into a validated AnalysisResult.
func (c *Client) GenerateAnalysis(ctx context.Context, place domain.Place, humidity domain.HumidityReading) (domain.AnalysisResult, error) {
	if c.key == "" {
		return domain.AnalysisResult{}, errors.New("gemini API key is not set")
	}

	prompt := buildPrompt(place, humidity)
	reply, err := c.generate(ctx, prompt)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	analysis, err := parseReply(reply)
	if err != nil {
		c.logger.Error("unparsable analysis reply", "reply", reply)
		return domain.AnalysisResult{}, err
	}
	return analysis, nil
}

// generate performs one generateContent call and returns the reply text.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := request{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	fullURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.key)

	start := time.Now()
	resp, err := c.policy.Do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	c.metrics.APIDuration.WithLabelValues("gemini").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.APIRequests.WithLabelValues("gemini", "error").Inc()
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.APIRequests.WithLabelValues("gemini", "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini API error: status %d: %s", resp.StatusCode, body)
	}

	var genResp response
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		c.metrics.APIRequests.WithLabelValues("gemini", "error").Inc()
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		c.metrics.APIRequests.WithLabelValues("gemini", "error").Inc()
		return "", errors.New("gemini response contains no candidates")
	}

	c.metrics.APIRequests.WithLabelValues("gemini", "success").Inc()
	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

// parseReply cleans markdown fencing from the reply, parses it as JSON, and
// verifies all four requested keys are present.
func parseReply(reply string) (domain.AnalysisResult, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("parse analysis reply: %w", err)
	}
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			return domain.AnalysisResult{}, fmt.Errorf("%w: %q", ErrMissingKey, key)
		}
	}

	var analysis domain.AnalysisResult
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("parse analysis reply: %w", err)
	}
	return analysis, nil
}

// Gemini API request/response types.

type request struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type response struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}
