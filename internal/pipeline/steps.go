package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/features"
	"defi-bi-etl/internal/manifest"
)

func transformMarkets(r *run) error {
	docs := r.documents(manifest.KindMarkets)
	if len(docs) == 0 {
		return nil
	}
	records, err := r.t.norm.MarketsFromDocuments(docs)
	if err != nil {
		return err
	}
	r.result.Markets = records

	if err := write(r, domain.SourceCoinGecko, MarketsFile, domain.MarketColumns, records); err != nil {
		return err
	}
	return write(r, domain.SourceCoinGecko, MarketsFeaturesFile, features.MarketFeaturesColumns, features.Markets(records))
}

func transformCategories(r *run) error {
	body, ok, err := r.latest(manifest.KindCategories)
	if err != nil || !ok {
		return err
	}
	records, err := r.t.norm.Categories(body)
	if err != nil {
		return err
	}

	if err := write(r, domain.SourceCoinGecko, CategoriesFile, domain.CategoryColumns, records); err != nil {
		return err
	}
	return write(r, domain.SourceCoinGecko, CategoriesFeaturesFile, features.CategoryFeaturesColumns, features.Categories(records))
}

// transformTokenHistory writes one table per coin. A bad file fails only its coin.
func transformTokenHistory(r *run) error {
	var errs []error
	for _, doc := range r.documents(manifest.KindTokenHistory) {
		id := doc.Key
		if id == "" {
			id = tokenIDFromPath(doc.Name)
		}
		points, err := r.t.norm.TokenHistory(doc.Body, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", doc.Name, err))
			continue
		}
		if err := write(r, domain.SourceCoinGecko, TokenHistoryFile(id, r.t.historyDays), domain.TokenHistoryColumns, points); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// tokenIDFromPath reads the id out of {ts}_token_history_{id}_{days}d.json.
func tokenIDFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(stem, "_")
	if len(parts) < 2 {
		return stem
	}
	return parts[len(parts)-2]
}

func transformKPI(r *run) error {
	global, hasGlobal, err := r.latest(manifest.KindGlobal)
	if err != nil {
		return err
	}
	defi, hasDeFi, err := r.latest(manifest.KindGlobalDeFi)
	if err != nil {
		return err
	}
	if !hasGlobal && !hasDeFi {
		return nil
	}

	kpi, err := r.t.norm.GlobalKPI(global, defi)
	if err != nil {
		return err
	}
	return write(r, domain.SourceCoinGecko, KPIFile, domain.GlobalKPIColumns, []domain.GlobalKPI{kpi})
}

func transformProtocols(r *run) error {
	body, ok, err := r.latest(manifest.KindProtocols)
	if err != nil || !ok {
		return err
	}
	records, err := r.t.norm.TvlOverview(body)
	if err != nil {
		return err
	}
	r.result.Overview = records

	if err := write(r, domain.SourceDeFiLlama, ProtocolsFile, domain.TvlOverviewColumns, records); err != nil {
		return err
	}
	return write(r, domain.SourceDeFiLlama, ProtocolsFeaturesFile, features.OverviewFeaturesColumns, features.Overview(records))
}

func transformProtocolTvl(r *run) error {
	docs := r.documents(manifest.KindProtocolTvl)
	if len(docs) == 0 {
		return nil
	}
	points, err := r.t.norm.ProtocolTvlFromDocuments(docs)
	if err != nil {
		return err
	}

	for _, name := range []string{ProtocolTvlWindowFile, ProtocolTvlFile} {
		if err := write(r, domain.SourceDeFiLlama, name, domain.ProtocolTvlColumns, points); err != nil {
			return err
		}
	}
	return write(r, domain.SourceDeFiLlama, TvlFeaturesFile, features.TvlFeaturesColumns(r.t.windows), features.Tvl(points, r.t.windows))
}

func transformChains(r *run) error {
	body, ok, err := r.latest(manifest.KindChainsTvl)
	if err != nil || !ok {
		return err
	}
	records, err := r.t.norm.ChainsTVL(body)
	if err != nil {
		return err
	}
	return write(r, domain.SourceDeFiLlama, ChainsFile, domain.ChainTvlColumns, records)
}

func transformStablecoins(r *run) error {
	body, ok, err := r.latest(manifest.KindStablecoins)
	if err != nil || !ok {
		return err
	}
	records, err := r.t.norm.Stablecoins(body)
	if err != nil {
		return err
	}
	return write(r, domain.SourceDeFiLlama, StablecoinsFile, domain.StablecoinColumns, records)
}

func transformDexPairs(r *run) error {
	docs := r.documents(manifest.KindDexPairs)
	if len(docs) == 0 {
		return nil
	}
	pairs, err := r.t.norm.DexPairsFromDocuments(docs)
	if err != nil {
		return err
	}
	return write(r, domain.SourceDexScreener, DexPairsFile, domain.DexPairColumns, pairs)
}
