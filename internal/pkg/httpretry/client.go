// Package httpretry provides an HTTP client that backs off and retries when
// a remote API explicitly asks for it (429 / 503), honouring Retry-After.
//
// Transport failures and timeouts are returned to the caller untouched: the
// caller decides whether a network error is worth another attempt.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/formsync/internal/pkg/logger"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *RetryClient satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient wraps an HTTPDoer with retry logic using exponential backoff and jitter.
type RetryClient struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryClient creates a new RetryClient that wraps the given HTTPDoer.
// If client is nil, a default http.Client with 30s timeout is used.
// maxRetries is the number of retry attempts after the initial request;
// zero or negative disables retries.
func NewRetryClient(client HTTPDoer, maxRetries int) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryClient{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   10 * time.Second,
	}
}

// SetDelays overrides the backoff bounds. Tests use millisecond values.
func (rc *RetryClient) SetDelays(base, max time.Duration) {
	rc.baseDelay = base
	rc.maxDelay = max
}

// Do executes the HTTP request. Only back-off responses (429, 503) are
// retried. On the final attempt the response is returned as-is so the
// caller can inspect the status code and body.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("httpretry: failed to reset request body: %w", err)
			}
			req.Body = body
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			return nil, err
		}

		if !isRetryableStatus(resp.StatusCode) || attempt >= rc.maxRetries {
			return resp, nil
		}

		delay := rc.calculateDelay(attempt+1, resp.Header.Get("Retry-After"))

		// Drain body for connection reuse, then wait
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		logger.Warn("httpretry: backing off",
			"attempt", attempt+1,
			"max_retries", rc.maxRetries,
			"status", resp.StatusCode,
			"path", req.URL.Path,
			"delay", delay.String())

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		}
	}
}

// calculateDelay returns the backoff for the given retry attempt. A valid
// Retry-After (seconds) wins, capped at maxDelay; otherwise full jitter over
// min(maxDelay, baseDelay * 2^(attempt-1)).
func (rc *RetryClient) calculateDelay(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		if d > rc.maxDelay {
			d = rc.maxDelay
		}
		return d
	}

	expDelay := float64(rc.baseDelay) * math.Pow(2, float64(attempt-1))
	if expDelay > float64(rc.maxDelay) {
		expDelay = float64(rc.maxDelay)
	}

	jittered := time.Duration(rand.Float64() * expDelay)
	if jittered < rc.baseDelay/5 {
		jittered = rc.baseDelay / 5
	}
	return jittered
}

// isRetryableStatus reports whether the server asked the client to slow down.
// 500/502/504 are not retried: a write may already have been applied.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}
