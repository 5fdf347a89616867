package defillama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defi-bi-etl/internal/fetch"
)

func TestClient_Paths(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.EscapedPath())
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := New(fetch.NewClient()).WithBaseURL(server.URL)
	ctx := context.Background()

	_, err := c.Protocols(ctx)
	require.NoError(t, err)
	_, err = c.Protocol(ctx, "aave-v3")
	require.NoError(t, err)
	_, err = c.ChainsTVL(ctx)
	require.NoError(t, err)
	_, err = c.Stablecoins(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"/protocols", "/protocol/aave-v3", "/v2/chains", "/stablecoins"}, paths)
}
