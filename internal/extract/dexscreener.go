package extract

import (
	"context"
	"encoding/json"

	"defi-bi-etl/internal/config"
	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/manifest"
)

// DexScreenerAPI is the subset of the DexScreener client used by extraction.
type DexScreenerAPI interface {
	PairsByChain(ctx context.Context, chain string, limit int) (json.RawMessage, error)
	TrendingPairs(ctx context.Context) (json.RawMessage, error)
	ChainStats(ctx context.Context, chain string) (json.RawMessage, error)
	DexStats(ctx context.Context, dex string) (json.RawMessage, error)
	ChainPairsSorted(ctx context.Context, chain, sortBy string, limit int) (json.RawMessage, error)
	TokenPairs(ctx context.Context, address string) (json.RawMessage, error)
}

// DexScreener extracts pairs per chain, trending pairs, chain and DEX stats,
// top pairs by volume and the pairs of configured token addresses.
func (e *Extractor) DexScreener(ctx context.Context, api DexScreenerAPI, cfg config.DexScreenerConfig) (*Result, error) {
	r := e.begin(domain.SourceDexScreener)

	for _, chain := range cfg.Chains {
		err := r.save(ctx, manifest.KindDexPairs, "pairs_"+chain, chain, func(ctx context.Context) (json.RawMessage, error) {
			return api.PairsByChain(ctx, chain, cfg.PairLimit)
		})
		if err != nil {
			return r.result, err
		}
	}

	if err := r.save(ctx, manifest.KindDexPairs, "trending_pairs", "", api.TrendingPairs); err != nil {
		return r.result, err
	}

	for _, chain := range cfg.Chains {
		err := r.save(ctx, manifest.KindChainStats, "chain_stats_"+chain, chain, func(ctx context.Context) (json.RawMessage, error) {
			return api.ChainStats(ctx, chain)
		})
		if err != nil {
			return r.result, err
		}
	}

	for _, dex := range cfg.Dexes {
		err := r.save(ctx, manifest.KindDexStats, "dex_stats_"+dex, dex, func(ctx context.Context) (json.RawMessage, error) {
			return api.DexStats(ctx, dex)
		})
		if err != nil {
			return r.result, err
		}
	}

	for _, chain := range cfg.Chains {
		err := r.save(ctx, manifest.KindDexPairs, "top_pairs_volume_"+chain, chain, func(ctx context.Context) (json.RawMessage, error) {
			return api.ChainPairsSorted(ctx, chain, "volume24h", cfg.PairLimit)
		})
		if err != nil {
			return r.result, err
		}
	}

	for _, addr := range cfg.TokenAddresses {
		err := r.save(ctx, manifest.KindDexPairs, "token_pairs_"+shortAddress(addr), addr, func(ctx context.Context) (json.RawMessage, error) {
			return api.TokenPairs(ctx, addr)
		})
		if err != nil {
			return r.result, err
		}
	}

	r.logger.Info().Int("files", len(r.result.Files)).Int("errors", len(r.result.Errors)).Msg("extraction completed")
	return r.result, nil
}

// shortAddress returns the first 8 characters of an address.
func shortAddress(addr string) string {
	if len(addr) > 8 {
		return addr[:8]
	}
	return addr
}
