package source

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.DiscardHandler)

var breakerCfg = config.CircuitBreakerConfig{
	ConsecutiveFailures: 2,
	ErrorRatePercent:    100,
	OpenTimeout:         time.Minute,
	HalfOpenRequests:    1,
}

// statusQueue answers with the queued status codes, then with 200 and samplePayload.
type statusQueue struct {
	codes []int
	calls atomic.Int32
}

func (q *statusQueue) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	n := int(q.calls.Add(1)) - 1
	if n < len(q.codes) && q.codes[n] != http.StatusOK {
		w.WriteHeader(q.codes[n])
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(samplePayload))
}

func Test_HTTPSource_Fetch(t *testing.T) {
	testCases := []struct {
		name       string
		codes      []int
		wantCount  int
		wantStatus int
	}{
		{name: "ok", wantCount: 2},
		{name: "not found", codes: []int{http.StatusNotFound}, wantStatus: http.StatusNotFound},
		{name: "server error", codes: []int{http.StatusBadGateway}, wantStatus: http.StatusBadGateway},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			srv := httptest.NewServer(&statusQueue{codes: tc.codes})
			t.Cleanup(srv.Close)
			src := NewHTTPSource(srv.URL, time.Second, breakerCfg, discardLogger)
			// when
			products, err := src.Fetch(context.Background())
			// then
			if tc.wantStatus != 0 {
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, tc.wantStatus, statusErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Len(t, products, tc.wantCount)
		})
	}
}

func Test_HTTPSource_MalformedBody(t *testing.T) {
	// given
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	t.Cleanup(srv.Close)
	src := NewHTTPSource(srv.URL, time.Second, breakerCfg, discardLogger)
	// when
	_, err := src.Fetch(context.Background())
	// then
	assert.ErrorContains(t, err, "decode")
}

func Test_HTTPSource_BreakerOpensOnServerErrors(t *testing.T) {
	// given
	handler := &statusQueue{codes: []int{http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusOK}}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	src := NewHTTPSource(srv.URL, time.Second, breakerCfg, discardLogger)
	// when
	_, err1 := src.Fetch(context.Background())
	_, err2 := src.Fetch(context.Background())
	_, err3 := src.Fetch(context.Background())
	// then
	assert.Error(t, err1)
	assert.Error(t, err2)
	assert.ErrorIs(t, err3, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, src.State())
	assert.Equal(t, int32(2), handler.calls.Load(), "an open breaker must not reach the upstream")
}

func Test_HTTPSource_ClientErrorsDoNotTripBreaker(t *testing.T) {
	// given
	handler := &statusQueue{codes: []int{http.StatusNotFound, http.StatusNotFound, http.StatusNotFound}}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	src := NewHTTPSource(srv.URL, time.Second, breakerCfg, discardLogger)
	// when
	for range 3 {
		_, _ = src.Fetch(context.Background())
	}
	products, err := src.Fetch(context.Background())
	// then
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, gobreaker.StateClosed, src.State())
}

func Test_isSystemSuccess(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: true},
		{name: "cancelled", err: context.Canceled, expected: true},
		{name: "client error", err: &StatusError{Code: http.StatusNotFound}, expected: true},
		{name: "server error", err: &StatusError{Code: http.StatusInternalServerError}, expected: false},
		{name: "transport error", err: errors.New("connection refused"), expected: false},
		{name: "deadline", err: context.DeadlineExceeded, expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, isSystemSuccess(tc.err))
		})
	}
}
