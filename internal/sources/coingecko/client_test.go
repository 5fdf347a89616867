package coingecko

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defi-bi-etl/internal/config"
	"defi-bi-etl/internal/fetch"
)

func TestClient_Markets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "usd", q.Get("vs_currency"))
		assert.Equal(t, "market_cap_desc", q.Get("order"))
		assert.Equal(t, "250", q.Get("per_page"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "false", q.Get("sparkline"))
		assert.Equal(t, "1h,24h,7d", q.Get("price_change_percentage"))
		assert.Equal(t, "en", q.Get("locale"))
		assert.Equal(t, "demo-key", r.Header.Get(config.CoinGeckoDemoHeader))
		json.NewEncoder(w).Encode([]map[string]any{{"id": "bitcoin"}})
	}))
	defer server.Close()

	c := New(fetch.NewClient(), config.CoinGeckoConfig{Tier: config.TierDemo, APIKey: "demo-key"}).
		WithBaseURL(server.URL)

	body, err := c.Markets(context.Background(), "usd", 250, 2)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"bitcoin"}]`, string(body))
}

func TestClient_MarketChartPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/ethereum/market_chart", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("days"))
		w.Write([]byte(`{"prices":[]}`))
	}))
	defer server.Close()

	c := New(fetch.NewClient(), config.CoinGeckoConfig{}).WithBaseURL(server.URL)

	_, err := c.MarketChart(context.Background(), "ethereum", "usd", 30)
	require.NoError(t, err)
}

func TestNew_TierSelection(t *testing.T) {
	pro := New(nil, config.CoinGeckoConfig{Tier: config.TierPro, APIKey: "k"})
	assert.Equal(t, config.CoinGeckoProURL, pro.BaseURL())
	assert.Equal(t, map[string]string{config.CoinGeckoProHeader: "k"}, pro.headers)

	demo := New(nil, config.CoinGeckoConfig{Tier: config.TierDemo})
	assert.Equal(t, config.CoinGeckoFreeURL, demo.BaseURL())
	assert.Empty(t, demo.headers)
}
