// Package httpx implements the shared outbound call policy for API clients:
// an explicit per-client timeout and at most one retry, taken on transport
// errors and 5xx responses after a short backoff.
package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

// Policy executes HTTP requests with a single bounded retry. The zero value
// is not usable; populate every field except OnRetry.
type Policy struct {
	Client  *http.Client
	Clock   clockwork.Clock
	Backoff time.Duration
	Logger  *slog.Logger

	// OnRetry, when set, is invoked once per retried request.
	OnRetry func()
}

// Do executes the request produced by build, retrying once on a transport
// error or a 5xx response. build is called per attempt so request bodies are
// fresh on the retry. Responses with status < 500 are returned as-is;
// semantic handling belongs to the caller.
func (p Policy) Do(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	resp, err := p.attempt(build)
	if !retryable(resp, err) {
		return resp, err
	}

	if resp != nil {
		drain(resp)
	}
	p.Logger.Warn("request failed, retrying once", "backoff", p.Backoff, "error", err)
	if p.OnRetry != nil {
		p.OnRetry()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.Clock.After(p.Backoff):
	}

	return p.attempt(build)
}

func (p Policy) attempt(build func() (*http.Request, error)) (*http.Response, error) {
	req, err := build()
	if err != nil {
		return nil, err
	}
	return p.Client.Do(req)
}

func retryable(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode >= http.StatusInternalServerError
}

// drain discards the body so the connection can be reused before the retry.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
