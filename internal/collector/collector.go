// Package collector gathers historical TVL for every DeFiLlama protocol in
// batches, checkpointing accumulated rows after each batch.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"defi-bi-etl/internal/config"
	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/fetch"
	"defi-bi-etl/internal/manifest"
	"defi-bi-etl/internal/normalization"
	"defi-bi-etl/internal/observability"
	"defi-bi-etl/internal/reporting"
)

// ErrCatalog is returned when the protocol catalog cannot be fetched or parsed.
var ErrCatalog = errors.New("protocol catalog unavailable")

// Output file names.
const (
	CheckpointPattern = "llama_historical_tvl_batch_*.csv"
	AllFile           = "llama_all_protocols_historical_all.csv"
)

// CheckpointName returns the checkpoint file name after the batch ending at batchEnd.
func CheckpointName(batchEnd int) string {
	return fmt.Sprintf("llama_historical_tvl_batch_%d.csv", batchEnd)
}

// WindowFile returns the filtered output name for a window of days.
func WindowFile(days int) string {
	return fmt.Sprintf("llama_all_protocols_historical_%dd.csv", days)
}

// Source provides the protocol catalog and per-protocol documents.
type Source interface {
	Protocols(ctx context.Context) (json.RawMessage, error)
	Protocol(ctx context.Context, slug string) (json.RawMessage, error)
}

// Outcome classifies how one protocol was collected.
type Outcome string

const (
	OutcomeHistorical      Outcome = "historical"
	OutcomeCurrentFallback Outcome = "current_fallback"
	OutcomeFailedFallback  Outcome = "failed_fallback"
)

// Result reports a finished collection.
type Result struct {
	Protocols       int
	Historical      int
	CurrentFallback int
	FailedFallback  int
	Checkpoints     []string
	AllPath         string
	WindowPath      string
	RowsAll         int
	RowsWindow      int
}

// Summary converts the result for the run report.
func (r *Result) Summary() *reporting.CollectorSummary {
	return &reporting.CollectorSummary{
		Protocols:       r.Protocols,
		Historical:      r.Historical,
		CurrentFallback: r.CurrentFallback,
		FailedFallback:  r.FailedFallback,
		Checkpoints:     len(r.Checkpoints),
		RowsAll:         r.RowsAll,
		RowsWindow:      r.RowsWindow,
	}
}

func (r *Result) count(o Outcome) {
	switch o {
	case OutcomeHistorical:
		r.Historical++
	case OutcomeCurrentFallback:
		r.CurrentFallback++
	case OutcomeFailedFallback:
		r.FailedFallback++
	}
}

// Collector runs the batched historical TVL collection.
type Collector struct {
	src      Source
	cfg      config.TVLConfig
	dir      string
	now      func() time.Time
	sleep    fetch.SleepFunc
	limiter  *rate.Limiter
	logger   zerolog.Logger
	manifest *manifest.Manifest
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock sets the clock used for fallback dates and the window cutoff.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// WithSleep replaces the wait between batches. Nil keeps fetch.Sleep.
func WithSleep(fn fetch.SleepFunc) Option {
	return func(c *Collector) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Collector) {
		c.logger = l
	}
}

// WithManifest records checkpoints and outputs in m.
func WithManifest(m *manifest.Manifest) Option {
	return func(c *Collector) {
		c.manifest = m
	}
}

// New creates a collector writing into dir.
func New(src Source, cfg config.TVLConfig, dir string, opts ...Option) *Collector {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}
	c := &Collector{
		src:     src,
		cfg:     cfg,
		dir:     dir,
		now:     time.Now,
		sleep:   fetch.Sleep,
		limiter: rate.NewLimiter(limit, 1),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run fetches the catalog, collects every protocol batch by batch and writes
// the unfiltered and windowed outputs.
func (c *Collector) Run(ctx context.Context) (*Result, error) {
	body, err := c.src.Protocols(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalog, err)
	}
	protocols, err := normalization.ProtocolRecords(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalog, err)
	}
	if c.cfg.MaxProtocols > 0 && len(protocols) > c.cfg.MaxProtocols {
		protocols = protocols[:c.cfg.MaxProtocols]
	}

	if err := c.clearCheckpoints(); err != nil {
		return nil, err
	}

	res := &Result{Protocols: len(protocols)}
	c.logger.Info().Int("protocols", len(protocols)).Int("batch_size", c.cfg.BatchSize).Msg("starting historical collection")

	var acc []domain.HistoricalTvlPoint
	for start := 0; start < len(protocols); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(protocols))
		for _, p := range protocols[start:end] {
			points, outcome, err := c.collect(ctx, p)
			if err != nil {
				return nil, err
			}
			res.count(outcome)
			observability.RecordProtocol(string(outcome))
			acc = append(acc, points...)
		}

		path := filepath.Join(c.dir, CheckpointName(end))
		if err := reporting.WriteRecords(path, domain.HistoricalTvlColumns, acc); err != nil {
			return nil, fmt.Errorf("write checkpoint: %w", err)
		}
		res.Checkpoints = append(res.Checkpoints, path)
		c.record(manifest.KindTvlCheckpoint, path)
		observability.RecordBatch(len(acc))
		c.logger.Info().Int("batch_end", end).Int("rows", len(acc)).Str("path", path).Msg("checkpoint written")

		if end < len(protocols) && c.cfg.BatchDelay > 0 {
			if err := c.sleep(ctx, c.cfg.BatchDelay); err != nil {
				return nil, err
			}
		}
	}

	if err := c.finish(acc, res); err != nil {
		return nil, err
	}
	c.logger.Info().
		Int("historical", res.Historical).
		Int("current_fallback", res.CurrentFallback).
		Int("failed_fallback", res.FailedFallback).
		Int("rows", res.RowsAll).
		Int("rows_window", res.RowsWindow).
		Msg("historical collection completed")
	return res, nil
}

// collect returns the rows of one protocol. Only context cancellation is an error.
func (c *Collector) collect(ctx context.Context, p domain.ProtocolRecord) ([]domain.HistoricalTvlPoint, Outcome, error) {
	log := c.logger.With().Str("protocol", p.Name).Str("slug", p.Slug).Logger()
	current := []domain.HistoricalTvlPoint{domain.CurrentPoint(p, c.now())}

	if p.Slug == "" {
		log.Debug().Msg("no slug, using current snapshot")
		return current, OutcomeCurrentFallback, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	body, err := c.src.Protocol(ctx, p.Slug)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		log.Warn().Err(err).Msg("protocol fetch failed, using current snapshot")
		return current, OutcomeFailedFallback, nil
	}

	points, err := normalization.ProtocolSeries(body, p)
	if err != nil || len(points) == 0 {
		log.Debug().Msg("no historical series, using current snapshot")
		return current, OutcomeCurrentFallback, nil
	}
	log.Debug().Int("rows", len(points)).Msg("protocol collected")
	return points, OutcomeHistorical, nil
}

// finish writes the unfiltered rows and the windowed, sorted rows.
func (c *Collector) finish(acc []domain.HistoricalTvlPoint, res *Result) error {
	window := Window(acc, c.now(), c.cfg.WindowDays)

	res.AllPath = filepath.Join(c.dir, AllFile)
	res.WindowPath = filepath.Join(c.dir, WindowFile(c.cfg.WindowDays))
	if err := reporting.WriteRecords(res.AllPath, domain.HistoricalTvlColumns, acc); err != nil {
		return fmt.Errorf("write unfiltered output: %w", err)
	}
	if err := reporting.WriteRecords(res.WindowPath, domain.HistoricalTvlColumns, window); err != nil {
		return fmt.Errorf("write window output: %w", err)
	}
	c.record(manifest.KindTable, res.AllPath)
	c.record(manifest.KindTable, res.WindowPath)

	res.RowsAll = len(acc)
	res.RowsWindow = len(window)
	observability.RecordRows("historical_tvl", len(acc))
	return nil
}

// clearCheckpoints removes checkpoints left by an earlier run so a later
// combine only sees this run's batches.
func (c *Collector) clearCheckpoints() error {
	stale, err := DiscoverCheckpoints(c.dir)
	if err != nil {
		return err
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale checkpoint: %w", err)
		}
		c.logger.Debug().Str("path", path).Msg("removed stale checkpoint")
	}
	return nil
}

func (c *Collector) record(kind manifest.Kind, path string) {
	if c.manifest == nil {
		return
	}
	c.manifest.Add(manifest.Entry{Source: domain.SourceDeFiLlama, Kind: kind, Path: path})
}

// Window keeps points dated at or after now minus days×24h and orders them
// by (date, protocol_name). The input is not modified.
func Window(points []domain.HistoricalTvlPoint, now time.Time, days int) []domain.HistoricalTvlPoint {
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	out := make([]domain.HistoricalTvlPoint, 0, len(points))
	for _, p := range points {
		if !p.Date.Before(cutoff) {
			out = append(out, p)
		}
	}
	normalization.SortHistoricalTvl(out)
	return out
}
