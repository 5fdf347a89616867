// Package pipeline runs the transform stage: raw payloads listed in a manifest
// are normalized into processed CSV tables and feature files.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/features"
	"defi-bi-etl/internal/manifest"
	"defi-bi-etl/internal/normalization"
	"defi-bi-etl/internal/observability"
	"defi-bi-etl/internal/reporting"
)

// Processed table names.
const (
	MarketsFile            = "cg_markets_latest.csv"
	MarketsFeaturesFile    = "cg_markets_with_features.csv"
	CategoriesFile         = "cg_categories_snapshot.csv"
	CategoriesFeaturesFile = "cg_categories_with_features.csv"
	KPIFile                = "cg_kpi_snapshot.csv"
	ProtocolsFile          = "llama_all_protocols.csv"
	ProtocolsFeaturesFile  = "llama_all_protocols_with_features.csv"
	ProtocolTvlFile        = "llama_tvl_protocols.csv"
	ProtocolTvlWindowFile  = "llama_tvl_protocols_30d.csv"
	TvlFeaturesFile        = "llama_tvl_with_features.csv"
	ChainsFile             = "llama_tvl_chains.csv"
	StablecoinsFile        = "llama_stablecoins.csv"
	DexPairsFile           = "dex_pairs.csv"
)

// TokenHistoryFile returns the processed history table of one coin.
func TokenHistoryFile(tokenID string, days int) string {
	return fmt.Sprintf("cg_token_history_%s_%dd.csv", tokenID, days)
}

// Result reports one transform run.
type Result struct {
	Tables []reporting.TableSummary
	Errors []string

	// Normalized snapshots handed to the optional sinks.
	Markets  []domain.MarketRecord
	Overview []domain.TvlOverviewRecord
}

// Transformer normalizes raw payloads into processed tables.
type Transformer struct {
	norm        *normalization.Normalizer
	outDir      string
	historyDays int
	windows     []int
	logger      zerolog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Transformer) {
		t.logger = l
	}
}

// WithWindows sets the rolling windows of the TVL feature file.
func WithWindows(windows []int) Option {
	return func(t *Transformer) {
		t.windows = windows
	}
}

// WithHistoryDays sets the day count used in token history file names.
func WithHistoryDays(days int) Option {
	return func(t *Transformer) {
		t.historyDays = days
	}
}

// NewTransformer creates a transformer writing into outDir.
func NewTransformer(norm *normalization.Normalizer, outDir string, opts ...Option) *Transformer {
	t := &Transformer{
		norm:        norm,
		outDir:      outDir,
		historyDays: 30,
		windows:     features.DefaultWindows,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// step is one output family. A returned error is recorded, not fatal.
type step struct {
	name string
	run  func(r *run) error
}

// run holds the state of one Run call.
type run struct {
	t      *Transformer
	in     *manifest.Manifest
	out    *manifest.Manifest
	result *Result
}

// Run executes every step whose inputs appear in in, recording written
// tables in out. Only a cancelled context or an unusable output directory
// fails the run.
func (t *Transformer) Run(ctx context.Context, in, out *manifest.Manifest) (*Result, error) {
	start := time.Now()
	if err := os.MkdirAll(t.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create processed dir: %w", err)
	}

	r := &run{t: t, in: in, out: out, result: &Result{}}
	steps := []step{
		{"markets", transformMarkets},
		{"categories", transformCategories},
		{"token_history", transformTokenHistory},
		{"kpi", transformKPI},
		{"protocols", transformProtocols},
		{"protocol_tvl", transformProtocolTvl},
		{"chains", transformChains},
		{"stablecoins", transformStablecoins},
		{"dex_pairs", transformDexPairs},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return r.result, err
		}
		if err := s.run(r); err != nil {
			t.logger.Error().Err(err).Str("step", s.name).Msg("transform step failed")
			r.result.Errors = append(r.result.Errors, fmt.Sprintf("%s: %v", s.name, err))
		}
	}

	t.logger.Info().
		Int("tables", len(r.result.Tables)).
		Int("errors", len(r.result.Errors)).
		Dur("duration", time.Since(start)).
		Msg("transform completed")
	return r.result, nil
}

// documents loads the payloads of every entry of kind. Unreadable files are
// recorded and skipped.
func (r *run) documents(kind manifest.Kind) []normalization.Document {
	var docs []normalization.Document
	for _, e := range r.in.Filter(kind) {
		body, err := os.ReadFile(e.Path)
		if err != nil {
			r.skip(kind, err)
			continue
		}
		docs = append(docs, normalization.Document{Name: e.Path, Key: e.Key, Body: body})
	}
	return docs
}

// latest loads the newest payload of kind.
func (r *run) latest(kind manifest.Kind) ([]byte, bool, error) {
	e, ok := r.in.Latest(kind)
	if !ok {
		return nil, false, nil
	}
	body, err := os.ReadFile(e.Path)
	if err != nil {
		observability.RecordFileSkipped(string(kind))
		return nil, false, fmt.Errorf("read %s: %w", e.Path, err)
	}
	return body, true, nil
}

func (r *run) skip(kind manifest.Kind, err error) {
	observability.RecordFileSkipped(string(kind))
	r.t.logger.Warn().Err(err).Str("kind", string(kind)).Msg("skipping raw file")
	r.result.Errors = append(r.result.Errors, err.Error())
}

// write renders records to name in the processed directory and records the table.
func write[T reporting.Record](r *run, source domain.Source, name string, header []string, records []T) error {
	path := filepath.Join(r.t.outDir, name)
	if err := reporting.WriteRecords(path, header, records); err != nil {
		return err
	}

	table := strings.TrimSuffix(name, filepath.Ext(name))
	observability.RecordRows(table, len(records))
	r.out.Add(manifest.Entry{Source: source, Kind: manifest.KindTable, Path: path})
	r.result.Tables = append(r.result.Tables, reporting.TableSummary{Name: table, Path: path, Rows: len(records)})
	r.t.logger.Info().Str("table", table).Int("rows", len(records)).Msg("wrote table")
	return nil
}
