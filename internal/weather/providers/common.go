package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/city-weather-search/internal/observability"
	"github.com/i474232898/city-weather-search/internal/weather"
)

// HTTPClientConfig bundles the outbound HTTP client and identifying headers.
type HTTPClientConfig struct {
	Client    *http.Client
	UserAgent string
}

var (
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// doRequest executes exactly one attempt through the circuit breaker.
// Any non-200 answer or transport failure comes back as *weather.UpstreamError;
// on success the caller owns the response body.
func doRequest(
	ctx context.Context,
	service string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	metrics *observability.Metrics,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}

	req, err := buildRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", service, err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, &weather.UpstreamError{Service: service, StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
	metrics.UpstreamDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(service, "error").Inc()

		var upErr *weather.UpstreamError
		if errors.As(err, &upErr) {
			return nil, upErr
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &weather.UpstreamError{Service: service, Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
		}
		return nil, &weather.UpstreamError{Service: service, Err: err}
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}
