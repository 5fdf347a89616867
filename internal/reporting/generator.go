package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"defi-bi-etl/internal/manifest"
)

// Generator builds run summaries from a manifest.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new summary generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate summarizes the processed tables listed in m.
// Tables that cannot be read are reported as errors, not failures.
func (g *Generator) Generate(m *manifest.Manifest, stages []StageSummary, collector *CollectorSummary) *RunSummary {
	summary := &RunSummary{
		RunID:       m.RunID,
		GeneratedAt: g.now(),
		StartedAt:   m.CreatedAt,
		Stages:      stages,
		Collector:   collector,
	}
	if !m.CreatedAt.IsZero() {
		summary.Duration = summary.GeneratedAt.Sub(m.CreatedAt)
	}

	seen := make(map[string]struct{})
	for _, e := range m.Filter(manifest.KindTable) {
		if _, dup := seen[e.Path]; dup {
			continue
		}
		seen[e.Path] = struct{}{}

		rows, err := CountRows(e.Path)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("count rows of %s: %v", e.Path, err))
			continue
		}
		summary.Tables = append(summary.Tables, TableSummary{
			Name: strings.TrimSuffix(filepath.Base(e.Path), filepath.Ext(e.Path)),
			Path: e.Path,
			Rows: rows,
		})
	}

	// Sort by table name
	sort.Slice(summary.Tables, func(i, j int) bool {
		return summary.Tables[i].Name < summary.Tables[j].Name
	})

	return summary
}

// WriteMarkdown renders the summary to path.
func WriteMarkdown(path string, r *RunSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(RenderMarkdown(r)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
