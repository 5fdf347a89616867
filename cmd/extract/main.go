// Package main pulls raw payloads from CoinGecko, DeFiLlama and DexScreener
// into the raw data directory and records them in a manifest.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"defi-bi-etl/internal/app"
	"defi-bi-etl/internal/config"
	"defi-bi-etl/internal/extract"
	"defi-bi-etl/internal/manifest"
)

func main() {
	source := flag.String("source", "all", "Source to extract: all, coingecko, defillama, dexscreener")
	manifestPath := flag.String("manifest", "", "Manifest output path (default {RAW_DATA_DIR}/manifest.yaml)")
	flag.Parse()

	if err := run(*source, *manifestPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(source, manifestPath string) error {
	ctx, cancel := app.SignalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	rt, err := app.Setup(ctx, cfg, "extract")
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer rt.Close()

	if manifestPath == "" {
		manifestPath = filepath.Join(cfg.Paths.RawDir, "manifest.yaml")
	}

	m := manifest.New(time.Now().UTC())
	ex := extract.New(cfg.Paths.RawDir, m, extract.WithLogger(rt.Logger))

	steps := []struct {
		name string
		fn   func() (*extract.Result, error)
	}{
		{"coingecko", func() (*extract.Result, error) { return ex.CoinGecko(ctx, rt.CoinGecko(), cfg.CoinGecko) }},
		{"defillama", func() (*extract.Result, error) { return ex.DeFiLlama(ctx, rt.DeFiLlama(), cfg.ProtocolSlugs) }},
		{"dexscreener", func() (*extract.Result, error) { return ex.DexScreener(ctx, rt.DexScreener(), cfg.DexScreener) }},
	}

	var results []*extract.Result
	for _, s := range steps {
		if source != "all" && !strings.EqualFold(source, s.name) {
			continue
		}
		res, err := s.fn()
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return fmt.Errorf("extraction %s aborted: %w", s.name, err)
		}
	}
	if len(results) == 0 {
		return fmt.Errorf("unknown source %q", source)
	}

	if err := m.Save(manifestPath); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}

	failed := 0
	fmt.Println("Extraction completed:")
	for _, r := range results {
		fmt.Printf("  %-12s files: %d, errors: %d\n", r.Source, len(r.Files), len(r.Errors))
		for _, e := range r.Errors {
			fmt.Printf("    - %s\n", e)
		}
		failed += len(r.Errors)
	}
	fmt.Printf("  Manifest: %s\n", manifestPath)
	if failed > 0 && m.Len() == 0 {
		return errors.New("no payload was extracted")
	}
	return nil
}
