// Package main collects historical TVL for every DeFiLlama protocol in
// checkpointed batches, or rebuilds the outputs from existing checkpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"defi-bi-etl/internal/app"
	"defi-bi-etl/internal/collector"
	"defi-bi-etl/internal/config"
)

func main() {
	combine := flag.Bool("combine", false, "Rebuild outputs from checkpoint files instead of collecting")
	maxProtocols := flag.Int("max-protocols", -1, "Limit the number of protocols (overrides TVL_MAX_PROTOCOLS)")
	flag.Parse()

	if err := run(*combine, *maxProtocols); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(combine bool, maxProtocols int) error {
	ctx, cancel := app.SignalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if maxProtocols >= 0 {
		cfg.TVL.MaxProtocols = maxProtocols
	}

	rt, err := app.Setup(ctx, cfg, "historical")
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer rt.Close()

	var allPath string
	if combine {
		allPath, err = combineCheckpoints(rt)
	} else {
		allPath, err = collect(ctx, rt)
	}
	if err != nil {
		return err
	}

	if rt.Sinks.Historical != nil {
		points, err := collector.ReadPoints(allPath)
		if err == nil {
			err = rt.Sinks.Historical.Upsert(ctx, points)
		}
		if err != nil {
			return fmt.Errorf("sink historical_tvl: %w", err)
		}
		fmt.Printf("  Delivered %d rows to historical_tvl\n", len(points))
	}
	return nil
}

func combineCheckpoints(rt *app.Runtime) (string, error) {
	cfg := rt.Config
	paths, err := collector.DiscoverCheckpoints(cfg.Paths.ProcessedDir)
	if err != nil {
		return "", fmt.Errorf("discover checkpoints: %w", err)
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no checkpoints found in %s", cfg.Paths.ProcessedDir)
	}

	res, err := collector.NewCombinator(cfg.Paths.ProcessedDir, cfg.TVL.WindowDays, rt.Logger).Combine(paths)
	if err != nil {
		return "", fmt.Errorf("combine: %w", err)
	}
	fmt.Println("Checkpoints combined:")
	fmt.Printf("  Files: %d (skipped %d)\n", len(res.Files), len(res.Skipped))
	fmt.Printf("  Rows: %d -> %s\n", res.RowsAll, res.AllPath)
	fmt.Printf("  Rows (%dd): %d -> %s\n", cfg.TVL.WindowDays, res.RowsWindow, res.WindowPath)
	return res.AllPath, nil
}

func collect(ctx context.Context, rt *app.Runtime) (string, error) {
	cfg := rt.Config
	c := collector.New(rt.DeFiLlama(), cfg.TVL, cfg.Paths.ProcessedDir, collector.WithLogger(rt.Logger))
	res, err := c.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("collector: %w", err)
	}
	fmt.Println("Historical TVL collected:")
	fmt.Printf("  Protocols: %d (historical %d, current fallback %d, failed fallback %d)\n",
		res.Protocols, res.Historical, res.CurrentFallback, res.FailedFallback)
	fmt.Printf("  Checkpoints: %d\n", len(res.Checkpoints))
	fmt.Printf("  Rows: %d -> %s\n", res.RowsAll, res.AllPath)
	fmt.Printf("  Rows (%dd): %d -> %s\n", cfg.TVL.WindowDays, res.RowsWindow, res.WindowPath)
	return res.AllPath, nil
}
