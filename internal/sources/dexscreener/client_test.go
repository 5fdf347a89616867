package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	url    string
	params url.Values
}

type recordingFetcher struct {
	calls []call
}

func (f *recordingFetcher) GetJSON(_ context.Context, rawURL string, _ map[string]string, params url.Values) (json.RawMessage, error) {
	f.calls = append(f.calls, call{url: rawURL, params: params})
	return json.RawMessage(`{}`), nil
}

func TestValidateTokenAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		valid   bool
	}{
		{"evm", "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599", true},
		{"evm mixed case", "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", true},
		{"evm short", "0x2260fac5", false},
		{"evm non hex", "0xzz60fac5e5542a773aa44fbcfedf7c193bc2c599", false},
		{"solana wrapped sol", "So11111111111111111111111111111111111111112", true},
		{"solana usdc", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", true},
		{"base58 wrong length", "3yZe7d", false},
		{"not base58", "0OIl", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTokenAddress(tt.address)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidAddress), "got %v", err)
			}
		})
	}
}

func TestClient_TokenPairsRejectsInvalidAddress(t *testing.T) {
	f := &recordingFetcher{}
	c := New(f)

	_, err := c.TokenPairs(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.Empty(t, f.calls)
}

func TestClient_Endpoints(t *testing.T) {
	f := &recordingFetcher{}
	c := New(f).WithBaseURL("http://dex")
	ctx := context.Background()

	_, err := c.TokenPairs(ctx, "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599")
	require.NoError(t, err)
	_, err = c.PairsByChain(ctx, "solana", 50)
	require.NoError(t, err)
	_, err = c.ChainPairsSorted(ctx, "bsc", "", 10)
	require.NoError(t, err)

	require.Len(t, f.calls, 3)
	assert.Equal(t, "http://dex/latest/dex/tokens/0x2260fac5e5542a773aa44fbcfedf7c193bc2c599", f.calls[0].url)
	assert.Equal(t, "http://dex/latest/dex/search", f.calls[1].url)
	assert.Equal(t, "solana", f.calls[1].params.Get("q"))
	assert.Equal(t, "50", f.calls[1].params.Get("limit"))
	assert.Equal(t, "http://dex/latest/dex/pairs/bsc", f.calls[2].url)
	assert.Equal(t, "volume24h", f.calls[2].params.Get("sort"))
}
