// Package defillama is the endpoint catalog for the DeFiLlama TVL API.
package defillama

import (
	"context"
	"encoding/json"
	"net/url"

	"defi-bi-etl/internal/sources"
)

// BaseURL is the public DeFiLlama API.
const BaseURL = "https://api.llama.fi"

// Client builds DeFiLlama requests. No key is required.
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

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.fetcher.GetJSON(ctx, c.baseURL+path, nil, nil)
}

// Protocols returns the protocol catalog with current TVL.
func (c *Client) Protocols(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/protocols")
}

// Protocol returns the historical TVL document of one protocol.
func (c *Client) Protocol(ctx context.Context, slug string) (json.RawMessage, error) {
	return c.get(ctx, "/protocol/"+url.PathEscape(slug))
}

// ChainsTVL returns current TVL per chain.
func (c *Client) ChainsTVL(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/v2/chains")
}

// Stablecoins returns stablecoin data.
func (c *Client) Stablecoins(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/stablecoins")
}

// Bridges returns bridge data.
func (c *Client) Bridges(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/bridges")
}

// Yields returns yield farming data.
func (c *Client) Yields(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/yields")
}

// Fees returns protocol fee data.
func (c *Client) Fees(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/fees")
}

// Volume returns DEX volume data.
func (c *Client) Volume(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/volume")
}

// Treasuries returns treasury data.
func (c *Client) Treasuries(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/treasuries")
}

// Airdrops returns airdrop data.
func (c *Client) Airdrops(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/airdrops")
}
