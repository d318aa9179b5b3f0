package httpinfra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// UserAgent is sent with every request.
const UserAgent = "foresight-cli/1.0"

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s failed with status %d", e.URL, e.StatusCode)
}

// RetryPolicy retries transport failures, 5xx and 429 responses a fixed
// number of times with a constant pause between attempts.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// ShouldRetry reports whether the attempt (zero based) that ended with
// status or err deserves another try.
func (p RetryPolicy) ShouldRetry(status int, err error, attempt int) bool {
	if attempt+1 >= p.Attempts {
		return false
	}
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

// StdRequester performs GET requests with retries.
type StdRequester struct {
	client *http.Client
	retry  RetryPolicy
	logger *zap.Logger
}

func NewStdRequester(timeout time.Duration, retry RetryPolicy, logger *zap.Logger) *StdRequester {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &StdRequester{client: &http.Client{Timeout: timeout}, retry: retry, logger: logger}
}

// Get returns the body of a 200 response. The caller closes it.
func (r *StdRequester) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", UserAgent)

		resp, err := r.client.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}

		// err stays the transport error so ShouldRetry can tell it from a status.
		status := 0
		if err == nil {
			status = resp.StatusCode
			resp.Body.Close()
		}
		retry := r.retry.ShouldRetry(status, err, attempt)
		if err == nil {
			err = &StatusError{URL: url, StatusCode: status}
		}
		if !retry {
			return nil, err
		}

		r.logger.Warn("Request failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if err := sleep(ctx, r.retry.Backoff); err != nil {
			return nil, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
