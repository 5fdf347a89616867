// Package dexscreener is the endpoint catalog for the DexScreener pair API.
package dexscreener

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"defi-bi-etl/internal/sources"
)

// BaseURL is the public DexScreener API.
const BaseURL = "https://api.dexscreener.com"

// ErrInvalidAddress is returned for token addresses that are neither EVM nor Solana.
var ErrInvalidAddress = errors.New("invalid token address")

// Client builds DexScreener requests. No key is required.
type Client struct {
	fetcher sources.Fetcher
	baseURL string
}

// New creates a client against BaseURL.
func New(f sources.Fetcher) *Client {
	return &Client{fetcher: f, baseURL: BaseURL}
}

// WithBaseURL overrides the base URL.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	return c.fetcher.GetJSON(ctx, c.baseURL+path, nil, params)
}

// TokenPairs returns all pairs of a token. The address is validated first.
func (c *Client) TokenPairs(ctx context.Context, address string) (json.RawMessage, error) {
	if err := ValidateTokenAddress(address); err != nil {
		return nil, err
	}
	return c.get(ctx, "/latest/dex/tokens/"+address, nil)
}

// PairsByChain searches pairs by chain name.
func (c *Client) PairsByChain(ctx context.Context, chain string, limit int) (json.RawMessage, error) {
	return c.get(ctx, "/latest/dex/search", url.Values{
		"q":     {chain},
		"limit": {strconv.Itoa(limit)},
	})
}

// Search searches pairs by free text.
func (c *Client) Search(ctx context.Context, query string) (json.RawMessage, error) {
	return c.get(ctx, "/latest/dex/search", url.Values{"q": {query}})
}

// TrendingPairs returns trending pairs.
func (c *Client) TrendingPairs(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/latest/dex/tokens/trending", nil)
}

// ChainStats returns statistics of one chain.
func (c *Client) ChainStats(ctx context.Context, chain string) (json.RawMessage, error) {
	return c.get(ctx, "/latest/dex/chains/"+url.PathEscape(chain), nil)
}

// DexStats returns statistics of one DEX.
func (c *Client) DexStats(ctx context.Context, dex string) (json.RawMessage, error) {
	return c.get(ctx, "/latest/dex/dexes/"+url.PathEscape(dex), nil)
}

// PairByAddress returns one pair.
func (c *Client) PairByAddress(ctx context.Context, pairAddress string) (json.RawMessage, error) {
	return c.get(ctx, "/latest/dex/pairs/"+url.PathEscape(pairAddress), nil)
}

// ChainPairsSorted returns chain pairs sorted by a criterion such as volume24h.
func (c *Client) ChainPairsSorted(ctx context.Context, chain, sortBy string, limit int) (json.RawMessage, error) {
	if sortBy == "" {
		sortBy = "volume24h"
	}
	return c.get(ctx, "/latest/dex/pairs/"+url.PathEscape(chain), url.Values{
		"limit": {strconv.Itoa(limit)},
		"sort":  {sortBy},
	})
}

// ValidateTokenAddress accepts an EVM address (0x + 40 hex digits)
// or a base58 Solana mint decoding to 32 bytes.
func ValidateTokenAddress(address string) error {
	if strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X") {
		digits := address[2:]
		if len(digits) != 40 {
			return fmt.Errorf("%w: %q has %d hex digits", ErrInvalidAddress, address, len(digits))
		}
		if _, err := hex.DecodeString(digits); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidAddress, address, err)
		}
		return nil
	}

	decoded, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidAddress, address, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, address, len(decoded))
	}
	return nil
}
