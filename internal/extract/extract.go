// Package extract pulls raw payloads from the upstream APIs and writes them
// under the raw data directory, recording each file in a manifest.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/manifest"
)

// FileTimeLayout prefixes raw file names.
const FileTimeLayout = "2006-01-02_1504"

// Result reports one extraction.
type Result struct {
	Source domain.Source
	Files  []manifest.Entry
	Errors []string
}

// Extractor writes raw JSON files for one run.
type Extractor struct {
	rawDir   string
	now      func() time.Time
	logger   zerolog.Logger
	manifest *manifest.Manifest
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock sets the clock used for file name timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// New creates an extractor appending every written file to m.
func New(rawDir string, m *manifest.Manifest, opts ...Option) *Extractor {
	e := &Extractor{
		rawDir:   rawDir,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   zerolog.Nop(),
		manifest: m,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Manifest returns the manifest receiving entries.
func (e *Extractor) Manifest() *manifest.Manifest {
	return e.manifest
}

// Path returns {rawDir}/{source}/{timestamp}_{name}.json.
func (e *Extractor) Path(source domain.Source, name string) string {
	file := fmt.Sprintf("%s_%s.json", e.now().UTC().Format(FileTimeLayout), name)
	return filepath.Join(e.rawDir, string(source), file)
}

// run is a single extraction over one source.
type run struct {
	e      *Extractor
	result *Result
	logger zerolog.Logger
}

func (e *Extractor) begin(source domain.Source) *run {
	return &run{
		e:      e,
		result: &Result{Source: source},
		logger: e.logger.With().Str("source", string(source)).Logger(),
	}
}

// save fetches one payload and writes it. A failed fetch or write is recorded
// and extraction continues; only context cancellation is returned.
func (r *run) save(ctx context.Context, kind manifest.Kind, name, key string, fetch func(context.Context) (json.RawMessage, error)) error {
	body, err := fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.fail(name, err)
		return nil
	}

	path := r.e.Path(r.result.Source, name)
	if err := writeJSON(path, body); err != nil {
		r.fail(name, err)
		return nil
	}

	entry := manifest.Entry{Source: r.result.Source, Kind: kind, Path: path, Key: key}
	r.result.Files = append(r.result.Files, entry)
	r.e.manifest.Add(entry)
	r.logger.Info().Str("kind", string(kind)).Str("path", path).Msg("saved raw payload")
	return nil
}

func (r *run) fail(name string, err error) {
	r.logger.Error().Err(err).Str("name", name).Msg("extraction failed, skipping")
	r.result.Errors = append(r.result.Errors, fmt.Sprintf("%s/%s: %v", r.result.Source, name, err))
}

// writeJSON writes body indented by two spaces, creating parent directories.
func writeJSON(path string, body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return fmt.Errorf("indent %s: %w", path, err)
	}
	buf.WriteByte('\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
