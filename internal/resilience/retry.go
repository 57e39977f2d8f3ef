package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// RetryConfig controls retry behavior.
type RetryConfig struct {
	MaxRetries   int
	InitialWait  time.Duration
	MaxWait      time.Duration
	Multiplier   float64
	RandomFactor float64
	// Retryable classifies errors. Nil uses IsRetryable.
	Retryable func(error) bool
}

// DefaultRetryConfig is suitable for calls to the video platform.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:   3,
	InitialWait:  500 * time.Millisecond,
	MaxWait:      10 * time.Second,
	Multiplier:   2.0,
	RandomFactor: 0.1,
}

// RetryDo retries fn up to MaxRetries times with jittered exponential backoff.
// Non-retryable errors and context cancellation return immediately.
func RetryDo[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	retryable := rc.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	wait := rc.InitialWait
	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) || attempt == rc.MaxRetries {
			break
		}

		jitter := 1.0 + rc.RandomFactor*(2*rand.Float64()-1) //nolint:gosec // jitter does not need crypto randomness
		sleep := time.Duration(float64(wait) * jitter)
		if rc.MaxWait > 0 && sleep > rc.MaxWait {
			sleep = rc.MaxWait
		}

		slog.Debug("Operation failed, retrying",
			"attempt", attempt+1,
			"max_retries", rc.MaxRetries,
			"wait", sleep,
			"error", err)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		if rc.Multiplier > 1 {
			wait = time.Duration(float64(wait) * rc.Multiplier)
		}
	}
	return zero, lastErr
}

// RetryHTTP executes an HTTP request function with retry logic. Responses with
// a retryable status are closed and retried; the final such response is
// reported as an *HTTPStatusError.
func RetryHTTP(ctx context.Context, rc RetryConfig, fn func() (*http.Response, error)) (*http.Response, error) {
	return RetryDo(ctx, rc, func() (*http.Response, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		if IsRetryableStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
}

// HTTPStatusError reports a non-success HTTP status.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return "unexpected HTTP status " + http.StatusText(e.StatusCode)
}

// IsRetryable returns true for transient errors worth retrying.
func IsRetryable(err error) bool {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return IsRetryableStatus(statusErr.StatusCode)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// IsRetryableStatus returns true for HTTP status codes worth retrying.
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
