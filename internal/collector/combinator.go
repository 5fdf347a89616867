package collector

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"defi-bi-etl/internal/domain"
	"defi-bi-etl/internal/normalization"
	"defi-bi-etl/internal/observability"
	"defi-bi-etl/internal/reporting"
)

var checkpointSuffix = regexp.MustCompile(`_batch_(\d+)\.csv$`)

// DiscoverCheckpoints lists the checkpoint files in dir ordered by batch end.
func DiscoverCheckpoints(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, CheckpointPattern))
	if err != nil {
		return nil, fmt.Errorf("glob checkpoints: %w", err)
	}
	SortCheckpoints(paths)
	return paths, nil
}

// SortCheckpoints orders checkpoint paths by numeric batch suffix.
// Paths without a suffix sort last by name.
func SortCheckpoints(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		a, aok := checkpointIndex(paths[i])
		b, bok := checkpointIndex(paths[j])
		switch {
		case aok && bok:
			return a < b
		case aok != bok:
			return aok
		}
		return paths[i] < paths[j]
	})
}

func checkpointIndex(path string) (int, bool) {
	m := checkpointSuffix.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// Combination reports a finished combine.
type Combination struct {
	Files      []string // files that were read
	Skipped    []string
	AllPath    string
	WindowPath string
	RowsAll    int
	RowsWindow int
}

// Combinator rebuilds the collector outputs from checkpoint files.
type Combinator struct {
	dir        string
	windowDays int
	now        func() time.Time
	logger     zerolog.Logger
}

// NewCombinator creates a combinator writing into dir.
func NewCombinator(dir string, windowDays int, logger zerolog.Logger) *Combinator {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &Combinator{dir: dir, windowDays: windowDays, now: time.Now, logger: logger}
}

// WithClock sets the clock used for the window cutoff.
func (c *Combinator) WithClock(now func() time.Time) *Combinator {
	c.now = now
	return c
}

// Combine reads paths in batch order, drops rows repeated across files and
// writes the same two outputs as the collector. A row kept k times is one that
// occurs k times within a single file, so cumulative checkpoints collapse to
// the final accumulation.
func (c *Combinator) Combine(paths []string) (*Combination, error) {
	ordered := append([]string(nil), paths...)
	SortCheckpoints(ordered)

	res := &Combination{}
	var files [][]domain.HistoricalTvlPoint
	for _, path := range ordered {
		points, err := ReadPoints(path)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("checkpoint unreadable, skipping")
			observability.RecordFileSkipped("tvl_checkpoint")
			res.Skipped = append(res.Skipped, path)
			continue
		}
		res.Files = append(res.Files, path)
		files = append(files, points)
	}
	if len(files) == 0 {
		return nil, normalization.ErrNoValidData
	}

	all := dedup(files)
	window := Window(all, c.now(), c.windowDays)

	res.AllPath = filepath.Join(c.dir, AllFile)
	res.WindowPath = filepath.Join(c.dir, WindowFile(c.windowDays))
	if err := reporting.WriteRecords(res.AllPath, domain.HistoricalTvlColumns, all); err != nil {
		return nil, fmt.Errorf("write unfiltered output: %w", err)
	}
	if err := reporting.WriteRecords(res.WindowPath, domain.HistoricalTvlColumns, window); err != nil {
		return nil, fmt.Errorf("write window output: %w", err)
	}
	res.RowsAll = len(all)
	res.RowsWindow = len(window)

	c.logger.Info().
		Int("files", len(res.Files)).
		Int("skipped", len(res.Skipped)).
		Int("rows", res.RowsAll).
		Int("rows_window", res.RowsWindow).
		Msg("checkpoints combined")
	return res, nil
}

// ReadPoints reads a historical TVL table written by the collector.
func ReadPoints(path string) ([]domain.HistoricalTvlPoint, error) {
	t, err := reporting.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	index := t.Index()
	for _, col := range []string{"date", "protocol_name", "tvl_usd"} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, col)
		}
	}
	points := make([]domain.HistoricalTvlPoint, 0, len(t.Rows))
	for i, row := range t.Rows {
		p, err := domain.ParseHistoricalTvlPoint(index, row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		points = append(points, p)
	}
	return points, nil
}

// dedup concatenates files keeping each distinct row as many times as it
// appears in the file where it is most frequent.
func dedup(files [][]domain.HistoricalTvlPoint) []domain.HistoricalTvlPoint {
	limit := make(map[string]int)
	for _, points := range files {
		counts := make(map[string]int)
		for _, p := range points {
			k := rowKey(p)
			counts[k]++
		}
		for k, n := range counts {
			if n > limit[k] {
				limit[k] = n
			}
		}
	}

	var out []domain.HistoricalTvlPoint
	emitted := make(map[string]int, len(limit))
	for _, points := range files {
		for _, p := range points {
			k := rowKey(p)
			if emitted[k] < limit[k] {
				emitted[k]++
				out = append(out, p)
			}
		}
	}
	return out
}

func rowKey(p domain.HistoricalTvlPoint) string {
	return strings.Join(p.CSVRecord(), "\x1f")
}
