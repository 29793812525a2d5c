package agg

import (
	"fmt"
	"strings"
)

// IngestError marks one event file (or one run's file set) as unreadable:
// truncated framing, checksum mismatch, undecodable payload, or a per-run
// timeout. The run that owns the file is skipped; siblings are unaffected.
type IngestError struct {
	Path string
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Path, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// LayoutError reports that a run directory does not contain the expected
// telemetry sub-path. Produced during directory resolution, before any file
// is opened.
type LayoutError struct {
	RunDir string
	Err    error
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("run layout %s: %v", e.RunDir, e.Err)
}

func (e *LayoutError) Unwrap() error { return e.Err }

// EmptyRunError reports that a run's records were all read but no step
// survived alignment (every step was missing at least one tracked metric).
type EmptyRunError struct {
	RunID string
}

func (e *EmptyRunError) Error() string {
	return fmt.Sprintf("run %s: no step has a complete set of tracked metrics", e.RunID)
}

// RunFailure pairs a skipped run with the reason it was skipped.
type RunFailure struct {
	RunID string
	Err   error
}

// AggregationError is returned when zero runs of an experiment produced a
// usable summary. It enumerates every per-run failure for diagnosis.
type AggregationError struct {
	Failures []RunFailure
}

func (e *AggregationError) Error() string {
	if len(e.Failures) == 0 {
		return "no runs to aggregate"
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.RunID, f.Err)
	}
	return fmt.Sprintf("all %d runs failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// UnknownColumnError reports a column selection that names no report column.
type UnknownColumnError struct {
	Column string
	Known  []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q; valid: %s", e.Column, strings.Join(e.Known, ", "))
}
