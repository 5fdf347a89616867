package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TierDemo, cfg.CoinGecko.Tier)
	assert.Equal(t, "usd", cfg.CoinGecko.VSCurrency)
	assert.Equal(t, 200, cfg.CoinGecko.PerPage)
	assert.Equal(t, []string{"bitcoin", "ethereum", "solana"}, cfg.CoinGecko.TokenIDs)
	assert.Equal(t, []string{"uniswap", "aave", "compound", "makerdao", "curve"}, cfg.ProtocolSlugs)
	assert.Equal(t, 50, cfg.TVL.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.TVL.RequestDelay)
	assert.Equal(t, time.Second, cfg.TVL.BatchDelay)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 5, cfg.HTTP.MaxAttempts)
	assert.Equal(t, "data/raw", cfg.Paths.RawDir)
	assert.Equal(t, "data/processed", cfg.Paths.ProcessedDir)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("COINGECKO_API_KEY", "secret")
	t.Setenv("COINGECKO_API_TIER", "Pro")
	t.Setenv("TOKEN_IDS_FOR_HISTORY", "bitcoin, dogecoin ,")
	t.Setenv("TVL_BATCH_SIZE", "75")
	t.Setenv("TVL_REQUEST_DELAY", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TierPro, cfg.CoinGecko.Tier)
	assert.Equal(t, []string{"bitcoin", "dogecoin"}, cfg.CoinGecko.TokenIDs)
	assert.Equal(t, 75, cfg.TVL.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.TVL.RequestDelay)
	assert.Equal(t, CoinGeckoProURL, cfg.CoinGecko.CoinGeckoBaseURL())
	assert.Equal(t, map[string]string{CoinGeckoProHeader: "secret"}, cfg.CoinGecko.Headers())
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("TVL_BATCH_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestCoinGeckoConfig_Headers(t *testing.T) {
	tests := []struct {
		name string
		cfg  CoinGeckoConfig
		url  string
		want map[string]string
	}{
		{"demo without key", CoinGeckoConfig{Tier: TierDemo}, CoinGeckoFreeURL, map[string]string{}},
		{"demo with key", CoinGeckoConfig{Tier: TierDemo, APIKey: "k"}, CoinGeckoFreeURL, map[string]string{CoinGeckoDemoHeader: "k"}},
		{"analyst", CoinGeckoConfig{Tier: TierAnalyst, APIKey: "k"}, CoinGeckoProURL, map[string]string{CoinGeckoProHeader: "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.url, tt.cfg.CoinGeckoBaseURL())
			assert.Equal(t, tt.want, tt.cfg.Headers())
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a,,b ", nil))
	assert.Equal(t, []string{"x"}, SplitList("", []string{"x"}))
}

func TestDefault_Valid(t *testing.T) {
	require.NoError(t, Default().Validate())
}
