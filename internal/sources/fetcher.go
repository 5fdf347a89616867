// Package sources holds the endpoint catalogs for the upstream APIs.
package sources

import (
	"context"
	"encoding/json"
	"net/url"
)

// Fetcher issues a GET and returns the raw JSON body.
// Implemented by *fetch.Client.
type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, headers map[string]string, params url.Values) (json.RawMessage, error)
}
