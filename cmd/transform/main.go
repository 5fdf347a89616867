// Package main normalizes the raw files listed in an extraction manifest into
// processed CSV tables and writes the run summary.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"defi-bi-etl/internal/app"
	"defi-bi-etl/internal/config"
	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/manifest"
	"defi-bi-etl/internal/normalization"
	"defi-bi-etl/internal/orchestrator"
	"defi-bi-etl/internal/pipeline"
	"defi-bi-etl/internal/reporting"
)

func main() {
	manifestPath := flag.String("manifest", "", "Extraction manifest (default {RAW_DATA_DIR}/manifest.yaml)")
	flag.Parse()

	if err := run(*manifestPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(manifestPath string) error {
	ctx, cancel := app.SignalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	rt, err := app.Setup(ctx, cfg, "transform")
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer rt.Close()

	if manifestPath == "" {
		manifestPath = filepath.Join(cfg.Paths.RawDir, "manifest.yaml")
	}
	in, err := manifest.Load(manifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	start := time.Now().UTC()
	out := manifest.New(start)
	norm := normalization.New(normalization.WithLogger(rt.Logger))
	t := pipeline.NewTransformer(norm, cfg.Paths.ProcessedDir,
		pipeline.WithHistoryDays(cfg.CoinGecko.Days),
		pipeline.WithLogger(rt.Logger),
	)

	res, err := t.Run(ctx, in, out)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}

	if rt.Sinks.Markets != nil && len(res.Markets) > 0 {
		if err := rt.Sinks.Markets.InsertBulk(ctx, res.Markets); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("sink market_snapshots: %v", err))
		}
	}
	if rt.Sinks.Protocols != nil && len(res.Overview) > 0 {
		if err := rt.Sinks.Protocols.InsertBulk(ctx, res.Overview); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("sink protocol_snapshots: %v", err))
		}
	}

	stage := reporting.StageSummary{Name: "transform", Files: len(res.Tables), Duration: time.Since(start), Errors: res.Errors}
	summary := reporting.NewGenerator().Generate(out, []reporting.StageSummary{stage}, nil)
	summaryPath := filepath.Join(cfg.Paths.ProcessedDir, orchestrator.SummaryFile)
	if err := reporting.WriteMarkdown(summaryPath, summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	out.Add(manifest.Entry{Source: domain.SourceProcessed, Kind: manifest.KindSummary, Path: summaryPath})
	if err := out.Save(filepath.Join(cfg.Paths.ProcessedDir, orchestrator.ManifestFile)); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}

	fmt.Println("Transform completed:")
	for _, tbl := range res.Tables {
		fmt.Printf("  %-40s %d rows\n", tbl.Name, tbl.Rows)
	}
	if len(res.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(res.Errors))
		for _, e := range res.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
	fmt.Printf("  Summary: %s\n", summaryPath)
	return nil
}
