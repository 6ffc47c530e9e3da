package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var _ catalog.Source = (*HTTPSource)(nil)

// StatusError is returned when the catalog endpoint answers with a non-200 status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog endpoint returned status %d", e.Code)
}

// HTTPSource GETs the catalog payload from a remote endpoint.
// Calls go through a circuit breaker so a failing upstream is not hammered on every reload.
type HTTPSource struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]catalog.Product]
}

// NewHTTPSource creates a source for url. The client is instrumented with otelhttp.
func NewHTTPSource(url string, timeout time.Duration, cbCfg config.CircuitBreakerConfig, logger *slog.Logger) *HTTPSource {
	client := &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return &HTTPSource{
		url:     url,
		client:  client,
		breaker: newCircuitBreaker(cbCfg, logger.With("component", "catalog-http-source")),
	}
}

func newCircuitBreaker(cfg config.CircuitBreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[[]catalog.Product] {
	st := gobreaker.Settings{
		Name:        "catalog-http-source",
		MaxRequests: max(cfg.HalfOpenRequests, 1),
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: isSystemSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return gobreaker.NewCircuitBreaker[[]catalog.Product](st)
}

// isSystemSuccess counts only upstream faults against the breaker.
// Client-side cancellation and 4xx answers leave it untouched.
func isSystemSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code < http.StatusInternalServerError
	}
	return false
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]catalog.Product, error) {
	return s.breaker.Execute(func() ([]catalog.Product, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build catalog request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch catalog: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{Code: resp.StatusCode}
		}
		return catalog.DecodePayload(resp.Body)
	})
}

// State reports the circuit breaker state.
func (s *HTTPSource) State() gobreaker.State {
	return s.breaker.State()
}
