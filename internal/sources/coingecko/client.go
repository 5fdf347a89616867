// Package coingecko is the endpoint catalog for the CoinGecko market-data API.
package coingecko

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"defi-bi-etl/internal/config"
	"defi-bi-etl/internal/sources"
)

// Client builds CoinGecko requests for the configured tier.
type Client struct {
	fetcher sources.Fetcher
	baseURL string
	headers map[string]string
}

// New creates a client. The base URL and auth header follow cfg.Tier.
func New(f sources.Fetcher, cfg config.CoinGeckoConfig) *Client {
	return &Client{
		fetcher: f,
		baseURL: cfg.CoinGeckoBaseURL(),
		headers: cfg.Headers(),
	}
}

// WithBaseURL overrides the base URL.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// BaseURL returns the base URL in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	return c.fetcher.GetJSON(ctx, c.baseURL+path, c.headers, params)
}

// Global returns global market data.
func (c *Client) Global(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/global", nil)
}

// GlobalDeFi returns global DeFi market data.
func (c *Client) GlobalDeFi(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/global/decentralized_finance_defi", nil)
}

// Categories returns coin categories.
func (c *Client) Categories(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/coins/categories", nil)
}

// Markets returns one page of coin markets ordered by market cap.
func (c *Client) Markets(ctx context.Context, vsCurrency string, perPage, page int) (json.RawMessage, error) {
	params := url.Values{
		"vs_currency":             {vsCurrency},
		"order":                   {"market_cap_desc"},
		"per_page":                {strconv.Itoa(perPage)},
		"page":                    {strconv.Itoa(page)},
		"sparkline":               {"false"},
		"price_change_percentage": {"1h,24h,7d"},
		"locale":                  {"en"},
	}
	return c.get(ctx, "/coins/markets", params)
}

// MarketChart returns the price, market cap and volume history of a coin.
func (c *Client) MarketChart(ctx context.Context, id, vsCurrency string, days int) (json.RawMessage, error) {
	params := url.Values{
		"vs_currency": {vsCurrency},
		"days":        {strconv.Itoa(days)},
	}
	return c.get(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", params)
}

// CoinInfo returns coin details with market data.
func (c *Client) CoinInfo(ctx context.Context, id string) (json.RawMessage, error) {
	params := url.Values{
		"localization":   {"false"},
		"tickers":        {"false"},
		"market_data":    {"true"},
		"community_data": {"false"},
		"developer_data": {"false"},
		"sparkline":      {"false"},
	}
	return c.get(ctx, "/coins/"+url.PathEscape(id), params)
}

// Search searches coins by query.
func (c *Client) Search(ctx context.Context, query string) (json.RawMessage, error) {
	return c.get(ctx, "/search", url.Values{"query": {query}})
}

// ExchangeRates returns BTC exchange rates.
func (c *Client) ExchangeRates(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/exchange_rates", nil)
}

// Trending returns trending searches.
func (c *Client) Trending(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/search/trending", nil)
}
