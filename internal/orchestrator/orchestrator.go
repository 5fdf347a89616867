// Package orchestrator runs the whole pipeline:
// extract → transform → historical TVL → optional sinks → run summary.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"defi-bi-etl/internal/collector"
	"defi-bi-etl/internal/config"
	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/extract"
	"defi-bi-etl/internal/fetch"
	"defi-bi-etl/internal/manifest"
	"defi-bi-etl/internal/normalization"
	"defi-bi-etl/internal/observability"
	"defi-bi-etl/internal/pipeline"
	"defi-bi-etl/internal/reporting"
	"defi-bi-etl/internal/storage"
)

// Output file names in the processed directory.
const (
	SummaryFile  = "RUN_SUMMARY.md"
	ManifestFile = "manifest.yaml"
)

// Options for creating Orchestrator.
type Options struct {
	Config *config.Config

	// Source clients. A nil client skips its extraction.
	CoinGecko   extract.CoinGeckoAPI
	DeFiLlama   extract.DeFiLlamaAPI
	DexScreener extract.DexScreenerAPI

	// Historical enables the batched TVL collector over this source.
	Historical collector.Source

	// Sinks receive normalized rows. Nil stores are skipped.
	Sinks storage.Sinks

	Logger zerolog.Logger
	Clock  func() time.Time
	Sleep  fetch.SleepFunc
}

// Orchestrator coordinates one pipeline execution.
type Orchestrator struct {
	opts Options
	now  func() time.Time
	log  zerolog.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{
		opts: opts,
		now:  now,
		log:  opts.Logger,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	Manifest     *manifest.Manifest
	Summary      *reporting.RunSummary
	SummaryPath  string
	ManifestPath string
	Errors       []string
}

// Run executes the full pipeline. Stage failures are collected into the
// result; only context cancellation or an unwritable summary aborts.
func (o *Orchestrator) Run(ctx context.Context) (res *RunResult, err error) {
	start := o.now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		observability.RecordPipelineRun("quickrun", status, o.now().Sub(start).Seconds())
	}()

	cfg := o.opts.Config
	m := manifest.New(start)
	res = &RunResult{Manifest: m}
	var stages []reporting.StageSummary

	// Phase 1: Extract
	o.log.Info().Str("run_id", m.RunID).Msg("phase 1: extract")
	stage, err := o.extract(ctx, m)
	stages = append(stages, stage)
	res.Errors = append(res.Errors, stage.Errors...)
	if err != nil {
		return res, fmt.Errorf("phase 1 (extract) failed: %w", err)
	}

	// Phase 2: Transform
	o.log.Info().Msg("phase 2: transform")
	phaseStart := o.now()
	norm := normalization.New(
		normalization.WithClock(o.now),
		normalization.WithLogger(o.log.With().Str("component", "normalization").Logger()),
	)
	transformer := pipeline.NewTransformer(norm, cfg.Paths.ProcessedDir,
		pipeline.WithHistoryDays(cfg.CoinGecko.Days),
		pipeline.WithLogger(o.log.With().Str("component", "transform").Logger()),
	)
	transformed, err := transformer.Run(ctx, m, m)
	if transformed != nil {
		stages = append(stages, reporting.StageSummary{
			Name:     "transform",
			Files:    len(transformed.Tables),
			Duration: o.now().Sub(phaseStart),
			Errors:   transformed.Errors,
		})
		res.Errors = append(res.Errors, transformed.Errors...)
	}
	if err != nil {
		return res, fmt.Errorf("phase 2 (transform) failed: %w", err)
	}

	// Phase 3: Historical TVL
	var collected *collector.Result
	if o.opts.Historical != nil {
		o.log.Info().Msg("phase 3: historical tvl")
		phaseStart = o.now()
		c := collector.New(o.opts.Historical, cfg.TVL, cfg.Paths.ProcessedDir,
			collector.WithClock(o.now),
			collector.WithSleep(o.opts.Sleep),
			collector.WithManifest(m),
			collector.WithLogger(o.log.With().Str("component", "collector").Logger()),
		)
		collected, err = c.Run(ctx)
		summary := reporting.StageSummary{Name: "historical", Duration: o.now().Sub(phaseStart)}
		if collected != nil {
			summary.Files = len(collected.Checkpoints)
		}
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			o.log.Error().Err(err).Msg("historical collection failed")
			summary.Errors = append(summary.Errors, err.Error())
			res.Errors = append(res.Errors, err.Error())
			collected = nil
		}
		stages = append(stages, summary)
	}

	// Phase 4: Sinks
	sinks := o.deliver(ctx, transformed, collected, res)

	// Phase 5: Summary
	gen := reporting.NewGenerator().WithClock(o.now)
	var collectorSummary *reporting.CollectorSummary
	if collected != nil {
		collectorSummary = collected.Summary()
	}
	summary := gen.Generate(m, stages, collectorSummary)
	summary.Sinks = sinks
	summary.Errors = append(append([]string(nil), res.Errors...), summary.Errors...)
	res.Summary = summary

	res.SummaryPath = filepath.Join(cfg.Paths.ProcessedDir, SummaryFile)
	if err := reporting.WriteMarkdown(res.SummaryPath, summary); err != nil {
		return res, fmt.Errorf("write summary: %w", err)
	}
	m.Add(manifest.Entry{Source: domain.SourceProcessed, Kind: manifest.KindSummary, Path: res.SummaryPath})

	res.ManifestPath = filepath.Join(cfg.Paths.ProcessedDir, ManifestFile)
	if err := m.Save(res.ManifestPath); err != nil {
		return res, err
	}

	o.log.Info().
		Int("tables", len(summary.Tables)).
		Int("errors", len(summary.Errors)).
		Str("summary", res.SummaryPath).
		Msg("pipeline completed")
	return res, nil
}

// extract runs every configured extractor into m.
func (o *Orchestrator) extract(ctx context.Context, m *manifest.Manifest) (reporting.StageSummary, error) {
	cfg := o.opts.Config
	start := o.now()
	stage := reporting.StageSummary{Name: "extract"}

	ex := extract.New(cfg.Paths.RawDir, m,
		extract.WithClock(o.now),
		extract.WithLogger(o.log.With().Str("component", "extract").Logger()),
	)

	var results []*extract.Result
	var err error
	collect := func(r *extract.Result, e error) {
		if r != nil {
			results = append(results, r)
		}
		if e != nil && err == nil {
			err = e
		}
	}

	if o.opts.CoinGecko != nil {
		collect(ex.CoinGecko(ctx, o.opts.CoinGecko, cfg.CoinGecko))
	}
	if o.opts.DeFiLlama != nil && err == nil {
		collect(ex.DeFiLlama(ctx, o.opts.DeFiLlama, cfg.ProtocolSlugs))
	}
	if o.opts.DexScreener != nil && err == nil {
		collect(ex.DexScreener(ctx, o.opts.DexScreener, cfg.DexScreener))
	}

	for _, r := range results {
		stage.Files += len(r.Files)
		stage.Errors = append(stage.Errors, r.Errors...)
	}
	stage.Duration = o.now().Sub(start)
	return stage, err
}

// deliver writes normalized rows to the configured sinks.
func (o *Orchestrator) deliver(ctx context.Context, t *pipeline.Result, c *collector.Result, res *RunResult) []reporting.SinkSummary {
	sinks := o.opts.Sinks
	var out []reporting.SinkSummary

	record := func(name string, rows int, err error) {
		if err != nil {
			o.log.Error().Err(err).Str("sink", name).Msg("sink write failed")
			res.Errors = append(res.Errors, fmt.Sprintf("sink %s: %v", name, err))
			return
		}
		out = append(out, reporting.SinkSummary{Name: name, Rows: rows})
	}

	if t != nil && sinks.Markets != nil && len(t.Markets) > 0 {
		record("market_snapshots", len(t.Markets), sinks.Markets.InsertBulk(ctx, t.Markets))
	}
	if t != nil && sinks.Protocols != nil && len(t.Overview) > 0 {
		record("protocol_snapshots", len(t.Overview), sinks.Protocols.InsertBulk(ctx, t.Overview))
	}
	if c != nil && sinks.Historical != nil && c.AllPath != "" {
		points, err := collector.ReadPoints(c.AllPath)
		if err == nil {
			err = sinks.Historical.Upsert(ctx, points)
		}
		record("historical_tvl", len(points), err)
	}
	return out
}
