package crawl

import (
	"context"
	"net/http"
	"time"

	"github.com/fwojciec/webgrab"
)

// GetFunc performs one request attempt.
type GetFunc func(ctx context.Context, url string) (*webgrab.Response, error)

// DefaultRetryDelays returns the backoff delays between attempts: 500ms, 1s, 2s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{500 * time.Millisecond, 1 * time.Second, 2 * time.Second}
}

// IsRetryableStatus reports whether an HTTP status is worth another attempt.
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// FetchWithRetryDelays calls get until it succeeds, retrying transport errors
// and retryable statuses once per delay. When the last attempt still carries
// a retryable status, that response is returned so callers see the status.
func FetchWithRetryDelays(ctx context.Context, url string, get GetFunc, delays []time.Duration) (*webgrab.Response, error) {
	maxAttempts := len(delays) + 1

	var (
		lastResp *webgrab.Response
		lastErr  error
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := get(ctx, url)
		switch {
		case err == nil && !IsRetryableStatus(resp.StatusCode):
			return resp, nil
		case err == nil:
			lastResp, lastErr = resp, nil
		default:
			lastResp, lastErr = nil, err
		}

		if attempt >= maxAttempts-1 {
			break
		}

		// Check context before sleeping
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return lastResp, nil
}
