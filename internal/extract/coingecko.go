package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"defi-bi-etl/internal/config"
	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/manifest"
)

// CoinGeckoAPI is the subset of the CoinGecko client used by extraction.
type CoinGeckoAPI interface {
	Global(ctx context.Context) (json.RawMessage, error)
	GlobalDeFi(ctx context.Context) (json.RawMessage, error)
	Categories(ctx context.Context) (json.RawMessage, error)
	Markets(ctx context.Context, vsCurrency string, perPage, page int) (json.RawMessage, error)
	MarketChart(ctx context.Context, id, vsCurrency string, days int) (json.RawMessage, error)
	Trending(ctx context.Context) (json.RawMessage, error)
}

// CoinGecko extracts global stats, categories, market pages, token histories
// and trending coins.
func (e *Extractor) CoinGecko(ctx context.Context, api CoinGeckoAPI, cfg config.CoinGeckoConfig) (*Result, error) {
	r := e.begin(domain.SourceCoinGecko)

	steps := []struct {
		kind manifest.Kind
		name string
		call func(context.Context) (json.RawMessage, error)
	}{
		{manifest.KindGlobal, "global_markets", api.Global},
		{manifest.KindGlobalDeFi, "global_defi", api.GlobalDeFi},
		{manifest.KindCategories, "categories", api.Categories},
	}
	for _, s := range steps {
		if err := r.save(ctx, s.kind, s.name, "", s.call); err != nil {
			return r.result, err
		}
	}

	for page := 1; page <= cfg.Pages; page++ {
		err := r.save(ctx, manifest.KindMarkets, fmt.Sprintf("markets_page_%d", page), "", func(ctx context.Context) (json.RawMessage, error) {
			return api.Markets(ctx, cfg.VSCurrency, cfg.PerPage, page)
		})
		if err != nil {
			return r.result, err
		}
	}

	for _, id := range cfg.TokenIDs {
		name := fmt.Sprintf("token_history_%s_%dd", id, cfg.Days)
		err := r.save(ctx, manifest.KindTokenHistory, name, id, func(ctx context.Context) (json.RawMessage, error) {
			return api.MarketChart(ctx, id, cfg.VSCurrency, cfg.Days)
		})
		if err != nil {
			return r.result, err
		}
	}

	if err := r.save(ctx, manifest.KindTrending, "trending", "", api.Trending); err != nil {
		return r.result, err
	}

	r.logger.Info().Int("files", len(r.result.Files)).Int("errors", len(r.result.Errors)).Msg("extraction completed")
	return r.result, nil
}
