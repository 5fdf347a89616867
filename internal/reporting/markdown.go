package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the run summary as Markdown string.
func RenderMarkdown(r *RunSummary) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Pipeline Run Summary\n\n")
	sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if !r.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Started: %s | Duration: %s\n\n", r.StartedAt.Format(time.RFC3339), r.Duration.Round(time.Millisecond)))
	}

	// Stages
	sb.WriteString("## Stages\n\n")
	if len(r.Stages) > 0 {
		sb.WriteString("| Stage | Files | Errors | Duration |\n")
		sb.WriteString("|-------|-------|--------|----------|\n")
		for _, s := range r.Stages {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n",
				s.Name, s.Files, len(s.Errors), s.Duration.Round(time.Millisecond)))
		}
	} else {
		sb.WriteString("No stages executed.\n")
	}
	sb.WriteString("\n")

	// Tables
	sb.WriteString("## Tables\n\n")
	if len(r.Tables) > 0 {
		sb.WriteString("| Table | Rows | Path |\n")
		sb.WriteString("|-------|------|------|\n")
		for _, t := range r.Tables {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n", t.Name, t.Rows, t.Path))
		}
	} else {
		sb.WriteString("No tables written.\n")
	}
	sb.WriteString("\n")

	// Collector
	if c := r.Collector; c != nil {
		sb.WriteString("## Historical TVL\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Protocols | %d |\n", c.Protocols))
		sb.WriteString(fmt.Sprintf("| With History | %d |\n", c.Historical))
		sb.WriteString(fmt.Sprintf("| Current Fallback | %d |\n", c.CurrentFallback))
		sb.WriteString(fmt.Sprintf("| Failed Fallback | %d |\n", c.FailedFallback))
		sb.WriteString(fmt.Sprintf("| Checkpoints | %d |\n", c.Checkpoints))
		sb.WriteString(fmt.Sprintf("| Rows (all) | %d |\n", c.RowsAll))
		sb.WriteString(fmt.Sprintf("| Rows (window) | %d |\n", c.RowsWindow))
		sb.WriteString("\n")
	}

	// Sinks
	if len(r.Sinks) > 0 {
		sb.WriteString("## Sinks\n\n")
		sb.WriteString("| Sink | Rows |\n")
		sb.WriteString("|------|------|\n")
		for _, s := range r.Sinks {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", s.Name, s.Rows))
		}
		sb.WriteString("\n")
	}

	// Errors
	sb.WriteString("## Errors\n\n")
	errs := r.Errors
	for _, s := range r.Stages {
		for _, e := range s.Errors {
			errs = append(errs, s.Name+": "+e)
		}
	}
	if len(errs) > 0 {
		for _, e := range errs {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
	} else {
		sb.WriteString("None.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
