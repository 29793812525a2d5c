package agg

// RunSummary condenses one run into a single report row: wall-clock extent
// of the surviving steps and the metric values at the highest step.
type RunSummary struct {
	RunID     string
	Step      int64   // highest surviving step; the terminal values belong to it
	StartTime float64 // min wall time across rows, unix seconds
	EndTime   float64 // max wall time across rows, unix seconds
	TotalTime float64 // EndTime - StartTime, seconds; 0 for a single-step table
	Metrics   map[string]float64
}

// Summarize reduces a MetricTable to one RunSummary. An empty table yields
// an *EmptyRunError; callers decide whether to skip the run or abort.
func Summarize(runID string, table *MetricTable) (*RunSummary, error) {
	if table.Empty() {
		return nil, &EmptyRunError{RunID: runID}
	}

	// Rows ascend by step, but worker clocks need not ascend with them, so
	// the extremes are taken over the whole wall-time column.
	start, end := table.Rows[0].WallTime, table.Rows[0].WallTime
	for _, row := range table.Rows[1:] {
		if row.WallTime < start {
			start = row.WallTime
		}
		if row.WallTime > end {
			end = row.WallTime
		}
	}

	terminal := table.Rows[len(table.Rows)-1]
	values := make(map[string]float64, len(terminal.Values))
	for name, v := range terminal.Values {
		values[name] = v
	}

	return &RunSummary{
		RunID:     runID,
		Step:      terminal.Step,
		StartTime: start,
		EndTime:   end,
		TotalTime: end - start,
		Metrics:   values,
	}, nil
}
