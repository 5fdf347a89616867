// Package main runs the full pipeline once, or on a cron schedule:
// extract → transform → historical TVL → sinks → RUN_SUMMARY.md
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"defi-bi-etl/internal/app"
	"defi-bi-etl/internal/config"
	"defi-bi-etl/internal/orchestrator"
)

func main() {
	schedule := flag.String("schedule", "", "Cron spec for repeated runs (overrides SCHEDULE)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics address (overrides METRICS_ADDR)")
	skipHistorical := flag.Bool("skip-historical", false, "Skip the batched historical TVL collection")
	flag.Parse()

	if err := run(*schedule, *metricsAddr, *skipHistorical); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(schedule, metricsAddr string, skipHistorical bool) error {
	ctx, cancel := app.SignalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if schedule != "" {
		cfg.Sinks.Schedule = schedule
	}
	if metricsAddr != "" {
		cfg.Sinks.MetricsAddr = metricsAddr
	}

	rt, err := app.Setup(ctx, cfg, "pipeline")
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer rt.Close()
	rt.ServeMetrics(ctx, cfg.Sinks.MetricsAddr)

	opts := orchestrator.Options{
		Config:      cfg,
		CoinGecko:   rt.CoinGecko(),
		DeFiLlama:   rt.DeFiLlama(),
		DexScreener: rt.DexScreener(),
		Sinks:       rt.Sinks,
		Logger:      rt.Logger,
	}
	if !skipHistorical {
		opts.Historical = rt.DeFiLlama()
	}
	orch := orchestrator.New(opts)

	runOnce := func(ctx context.Context) error {
		result, err := orch.Run(ctx)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	}

	if cfg.Sinks.Schedule != "" {
		if err := orchestrator.Schedule(ctx, cfg.Sinks.Schedule, runOnce, rt.Logger); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	}

	if err := runOnce(ctx); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

func printResult(r *orchestrator.RunResult) {
	fmt.Printf("Pipeline run %s completed:\n", r.Manifest.RunID)
	for _, t := range r.Summary.Tables {
		fmt.Printf("  %-40s %d rows\n", t.Name, t.Rows)
	}
	for _, s := range r.Summary.Sinks {
		fmt.Printf("  sink %-35s %d rows\n", s.Name, s.Rows)
	}
	if len(r.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
	fmt.Printf("  Summary: %s\n", r.SummaryPath)
	fmt.Printf("  Manifest: %s\n", r.ManifestPath)
}
