package extract

import (
	"context"
	"encoding/json"

	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/manifest"
)

// DeFiLlamaAPI is the subset of the DeFiLlama client used by extraction.
type DeFiLlamaAPI interface {
	Protocols(ctx context.Context) (json.RawMessage, error)
	Protocol(ctx context.Context, slug string) (json.RawMessage, error)
	ChainsTVL(ctx context.Context) (json.RawMessage, error)
	Stablecoins(ctx context.Context) (json.RawMessage, error)
	Bridges(ctx context.Context) (json.RawMessage, error)
	Yields(ctx context.Context) (json.RawMessage, error)
}

// DeFiLlama extracts the protocol catalog, per-protocol TVL for slugs,
// chain TVL, stablecoins, bridges and yields.
func (e *Extractor) DeFiLlama(ctx context.Context, api DeFiLlamaAPI, slugs []string) (*Result, error) {
	r := e.begin(domain.SourceDeFiLlama)

	if err := r.save(ctx, manifest.KindProtocols, "protocols", "", api.Protocols); err != nil {
		return r.result, err
	}

	for _, slug := range slugs {
		err := r.save(ctx, manifest.KindProtocolTvl, "protocol_tvl_"+slug, slug, func(ctx context.Context) (json.RawMessage, error) {
			return api.Protocol(ctx, slug)
		})
		if err != nil {
			return r.result, err
		}
	}

	steps := []struct {
		kind manifest.Kind
		name string
		call func(context.Context) (json.RawMessage, error)
	}{
		{manifest.KindChainsTvl, "chains_tvl", api.ChainsTVL},
		{manifest.KindStablecoins, "stablecoins", api.Stablecoins},
		{manifest.KindBridges, "bridges", api.Bridges},
		{manifest.KindYields, "yields", api.Yields},
	}
	for _, s := range steps {
		if err := r.save(ctx, s.kind, s.name, "", s.call); err != nil {
			return r.result, err
		}
	}

	r.logger.Info().Int("files", len(r.result.Files)).Int("errors", len(r.result.Errors)).Msg("extraction completed")
	return r.result, nil
}
