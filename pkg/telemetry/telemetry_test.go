package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewMeterProvider_ExposesInstruments(t *testing.T) {
	// given
	mp, registry, err := NewMeterProvider("storefront-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	counter, err := mp.Meter("test").Int64Counter("storefront_test_ops")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	srv := httptest.NewServer(MetricsHandler(registry))
	t.Cleanup(srv.Close)
	// when
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	// then
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "storefront_test_ops_total")
	assert.Contains(t, string(body), "go_goroutines")
}
