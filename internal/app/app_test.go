package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defi-bi-etl/internal/config"
)

func TestSetup_NoSinks(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"

	rt, err := Setup(context.Background(), cfg, "test")
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Fetcher)
	assert.Nil(t, rt.Sinks.Markets)
	assert.Nil(t, rt.Sinks.Protocols)
	assert.Nil(t, rt.Sinks.Historical)

	assert.Equal(t, cfg.CoinGecko.CoinGeckoBaseURL(), rt.CoinGecko().BaseURL())
	assert.NotNil(t, rt.DeFiLlama())
	assert.NotNil(t, rt.DexScreener())
}

func TestSetup_UnreachableRedis(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Sinks.RedisAddr = "127.0.0.1:1"

	_, err := Setup(context.Background(), cfg, "test")
	assert.Error(t, err)
}

func TestRuntime_CloseReverseOrder(t *testing.T) {
	var order []int
	rt := &Runtime{}
	for i := range 3 {
		rt.closers = append(rt.closers, func() error { order = append(order, i); return nil })
	}

	require.NoError(t, rt.Close())
	assert.Equal(t, []int{2, 1, 0}, order)
	require.NoError(t, rt.Close())
	assert.Len(t, order, 3)
}

func TestMetricsHandler(t *testing.T) {
	srv := httptest.NewServer(MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "defi_bi_etl_")
}
