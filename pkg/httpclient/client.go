// Package httpclient wraps outbound provider requests with a bounded
// timeout and a circuit breaker. There is deliberately no retry layer:
// the free geocoding and forecast providers impose courtesy limits, and
// a failed lookup degrades to a sentinel or a null field instead.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrUnexpectedStatus is returned for any non-2xx provider response.
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrCircuitOpen is returned while the breaker is suppressing requests
	// after repeated provider failures.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// Client issues single outbound GET requests against one provider.
type Client struct {
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
	userAgent  string
}

// New creates a client for the named provider with the given per-request
// timeout. The breaker opens after repeated consecutive failures and maps
// to the same degraded path as any other provider error.
func New(name string, timeout time.Duration, userAgent string) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		circuit:    cb,
		userAgent:  userAgent,
	}
}

// Get performs a single GET against the URL. Exactly one request is issued
// per call; the caller owns closing the response body on success.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, execErr := c.httpClient.Do(req)
		if execErr != nil {
			return nil, execErr
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}

		return resp, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}
