package agg

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Fixed report columns, always present ahead of the metric columns.
const (
	ColumnRunID     = "run_id"
	ColumnStep      = "step"
	ColumnStartTime = "start_time"
	ColumnEndTime   = "end_time"
	ColumnTotalTime = "total_time"
)

var fixedColumns = []string{ColumnRunID, ColumnStep, ColumnStartTime, ColumnEndTime, ColumnTotalTime}

// Columns returns every column the report can be exported with: the fixed
// columns followed by the union of metric names across runs, sorted.
func (r *ExperimentReport) Columns() []string {
	seen := make(map[string]bool)
	for _, run := range r.Runs {
		for name := range run.Metrics {
			seen[name] = true
		}
	}
	metrics := make([]string, 0, len(seen))
	for name := range seen {
		metrics = append(metrics, name)
	}
	sort.Strings(metrics)
	return append(append([]string{}, fixedColumns...), metrics...)
}

// resolveColumns validates a selection against the report, defaulting an
// empty selection to every column.
func (r *ExperimentReport) resolveColumns(columns []string) ([]string, error) {
	known := r.Columns()
	if len(columns) == 0 {
		return known, nil
	}
	knownSet := make(map[string]bool, len(known))
	for _, c := range known {
		knownSet[c] = true
	}
	for _, c := range columns {
		if !knownSet[c] {
			return nil, &UnknownColumnError{Column: c, Known: known}
		}
	}
	return columns, nil
}

// columnValue formats one cell. Floats keep all significant digits; nothing
// is silently truncated.
func columnValue(run *RunSummary, column string) string {
	switch column {
	case ColumnRunID:
		return run.RunID
	case ColumnStep:
		return strconv.FormatInt(run.Step, 10)
	case ColumnStartTime:
		return formatFloat(run.StartTime)
	case ColumnEndTime:
		return formatFloat(run.EndTime)
	case ColumnTotalTime:
		return formatFloat(run.TotalTime)
	default:
		v, ok := run.Metrics[column]
		if !ok {
			// Column exists in the report but not in this run's metric set.
			return ""
		}
		return formatFloat(v)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV serializes the report as comma-separated records with a header
// row matching the selected columns. Empty selection exports every column.
func WriteCSV(w io.Writer, report *ExperimentReport, columns []string) error {
	cols, err := report.resolveColumns(columns)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i := range report.Runs {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = columnValue(&report.Runs[i], c)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for run %s: %w", report.Runs[i].RunID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Flatten renders one column as a delimited blob for spreadsheet paste:
// values joined by fieldSep with rowSep inserted after every perLine values.
// perLine <= 0 puts everything on a single line. Typical use is tab fields
// with a newline every k values.
func Flatten(report *ExperimentReport, column string, perLine int, fieldSep, rowSep string) (string, error) {
	cols, err := report.resolveColumns([]string{column})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := range report.Runs {
		if i > 0 {
			if perLine > 0 && i%perLine == 0 {
				b.WriteString(rowSep)
			} else {
				b.WriteString(fieldSep)
			}
		}
		b.WriteString(columnValue(&report.Runs[i], cols[0]))
	}
	return b.String(), nil
}

// RenderTable writes a human-readable table of the report, one line per run.
func RenderTable(w io.Writer, report *ExperimentReport, columns []string) error {
	cols, err := report.resolveColumns(columns)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Format.Header = text.FormatDefault // column names are case-sensitive identifiers
	t.SetStyle(style)

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)

	for i := range report.Runs {
		row := make(table.Row, len(cols))
		for j, c := range cols {
			row[j] = columnValue(&report.Runs[i], c)
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d runs)\n", len(report.Runs))
	return nil
}
