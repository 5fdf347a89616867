package reporting

import "time"

// RunSummary describes one pipeline run.
type RunSummary struct {
	// Metadata
	RunID       string
	GeneratedAt time.Time
	StartedAt   time.Time
	Duration    time.Duration

	// Stage results in execution order
	Stages []StageSummary

	// Written tables (sorted by name)
	Tables []TableSummary

	// Historical TVL collection, nil when skipped
	Collector *CollectorSummary

	// Sinks that received rows
	Sinks []SinkSummary

	Errors []string
}

// StageSummary counts the outputs of a stage.
type StageSummary struct {
	Name     string
	Files    int
	Duration time.Duration
	Errors   []string
}

// TableSummary describes one written CSV file.
type TableSummary struct {
	Name string
	Path string
	Rows int
}

// CollectorSummary reports historical TVL outcomes.
type CollectorSummary struct {
	Protocols       int
	Historical      int // protocols with a series
	CurrentFallback int // protocols without a usable series
	FailedFallback  int // protocols whose fetch failed
	Checkpoints     int
	RowsAll         int
	RowsWindow      int
}

// SinkSummary reports rows delivered to an optional sink.
type SinkSummary struct {
	Name string
	Rows int
}
