// Package retry provides exponential backoff with jitter for transient
// failures, primarily HTTP calls to model providers.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseWait   = 1 * time.Second
)

// Func is a function that can be retried.
type Func func() error

// Option configures a Do call.
type Option func(*config)

type config struct {
	maxRetries int
	baseWait   time.Duration
}

// WithMaxRetries sets how many attempts are made after the first failure.
func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

// WithBaseWait sets the backoff base wait.
func WithBaseWait(d time.Duration) Option {
	return func(c *config) { c.baseWait = d }
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// MarkPermanent wraps an error so Do stops retrying immediately.
func MarkPermanent(err error) error {
	return &permanentError{err: err}
}

// APIError is implemented by errors that carry an HTTP status code.
type APIError interface {
	error
	StatusCode() int
}

// Do executes f with exponential backoff and jitter. It stops early on
// context cancellation, permanent errors, and API errors whose status code
// is not retryable.
func Do(ctx context.Context, f Func, opts ...Option) error {
	c := &config{maxRetries: DefaultMaxRetries, baseWait: DefaultBaseWait}
	for _, opt := range opts {
		opt(c)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(c.baseWait) * math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(rand.Float64() * float64(backoff) * 0.1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		err := f()
		if err == nil {
			return nil
		}
		lastErr = err

		var permanent *permanentError
		if errors.As(err, &permanent) {
			return permanent.err
		}
		var apiErr APIError
		if errors.As(err, &apiErr) && !ShouldRetry(apiErr.StatusCode()) {
			return err
		}
	}
	return lastErr
}

// ShouldRetry reports whether the given HTTP status code is worth retrying.
func ShouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || // 429
		statusCode == http.StatusInternalServerError || // 500
		statusCode == http.StatusServiceUnavailable || // 503
		statusCode == http.StatusGatewayTimeout // 504
}
