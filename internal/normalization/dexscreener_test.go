package normalization

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pairJSON = `{"chainId":"solana","dexId":"raydium","pairAddress":"P1","url":"https://dexscreener.com/solana/p1",
	"baseToken":{"address":"B1","symbol":"SOL","name":"Wrapped SOL"},
	"quoteToken":{"address":"Q1","symbol":"USDC"},
	"priceNative":"1.0","priceUsd":"150.25","liquidity":{"usd":1200000},
	"volume":{"h24":500000,"h6":100000,"h1":20000},
	"priceChange":{"h24":-2.5,"h6":1.1},
	"txns":{"h24":{"buys":120,"sells":95}},
	"pairCreatedAt":1717200000000}`

func TestDexPairs_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"pairs wrapper", `{"pairs":[` + pairJSON + `]}`, 1},
		{"single pair", `{"pair":` + pairJSON + `}`, 1},
		{"bare array", `[` + pairJSON + `,` + pairJSON + `]`, 2},
		{"null pairs", `{"schemaVersion":"1.0.0","pairs":null}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := newTestNormalizer().DexPairs([]byte(tt.body))
			require.NoError(t, err)
			assert.Len(t, rows, tt.want)
		})
	}
}

func TestDexPairs_Fields(t *testing.T) {
	rows, err := newTestNormalizer().DexPairs([]byte(`{"pairs":[` + pairJSON + `]}`))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	p := rows[0]
	assert.Equal(t, "solana", p.ChainID)
	assert.Equal(t, "SOL", p.BaseSymbol)
	assert.Equal(t, "USDC", p.QuoteSymbol)
	assert.Equal(t, 150.25, p.PriceUSD)
	assert.Equal(t, 1200000.0, p.LiquidityUSD)
	assert.Equal(t, 100000.0, p.Volume6h)
	assert.Equal(t, 0.0, p.PriceChange1h)
	assert.Equal(t, 120.0, p.Buys24h)
	assert.Equal(t, 95.0, p.Sells24h)
	assert.Equal(t, time.UnixMilli(1717200000000).UTC(), p.PairCreatedAt)
}

func TestDexPairs_MissingCreatedAt(t *testing.T) {
	rows, err := newTestNormalizer().DexPairs([]byte(`[{"pairAddress":"x"}]`))
	require.NoError(t, err)
	assert.True(t, rows[0].PairCreatedAt.IsZero())
}
