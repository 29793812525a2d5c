package agg

import (
	"sort"
	"strings"
)

// MetricRow is one step of a run after alignment: the earliest wall time
// observed for that step across all workers, and one value per tracked
// metric.
type MetricRow struct {
	Step     int64
	WallTime float64
	Values   map[string]float64 // keyed by normalized metric name
}

// MetricTable is the step-aligned view of one run. Rows ascend by step and
// every row carries a value for every metric in Metrics. Read-only after
// construction; an empty table (no surviving rows) is a valid result.
type MetricTable struct {
	Metrics []string // normalized, sorted
	Rows    []MetricRow
}

// Empty reports whether no step survived alignment.
func (t *MetricTable) Empty() bool { return len(t.Rows) == 0 }

// NormalizeMetricName maps a raw logging-tool tag to a stable identifier:
// lowercase, with each run of non-alphanumeric characters collapsed to one
// underscore. "Accuracy per epoch" and "accuracy/per-epoch" both become
// "accuracy_per_epoch".
func NormalizeMetricName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pending := false
	for _, c := range strings.ToLower(name) {
		alnum := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		if !alnum {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte('_')
			pending = false
		}
		b.WriteRune(c)
	}
	return b.String()
}

// BuildMetricTable flattens the record stream of one run (all worker files,
// in file order) into a step-aligned table.
//
// Per step, wall time is the minimum across all records carrying that step.
// When the same metric is reported more than once for a step (overlapping
// workers), the later record in stream order wins. Steps missing any tracked
// metric are dropped: completeness is all-or-nothing per row.
//
// tracked selects the metric columns (raw or normalized names both accepted).
// An empty tracked set means every metric name seen in the stream.
func BuildMetricTable(records []EventRecord, tracked []string) *MetricTable {
	type stepGroup struct {
		wallTime float64
		values   map[string]float64
	}
	groups := make(map[int64]*stepGroup)
	seen := make(map[string]bool)

	for _, rec := range records {
		name := NormalizeMetricName(rec.Metric)
		if name == "" {
			continue
		}
		seen[name] = true
		g, ok := groups[rec.Step]
		if !ok {
			g = &stepGroup{wallTime: rec.WallTime, values: make(map[string]float64)}
			groups[rec.Step] = g
		} else if rec.WallTime < g.wallTime {
			g.wallTime = rec.WallTime
		}
		g.values[name] = rec.Value // last report wins
	}

	var metrics []string
	if len(tracked) > 0 {
		uniq := make(map[string]bool, len(tracked))
		for _, name := range tracked {
			norm := NormalizeMetricName(name)
			if norm != "" && !uniq[norm] {
				uniq[norm] = true
				metrics = append(metrics, norm)
			}
		}
	} else {
		for name := range seen {
			metrics = append(metrics, name)
		}
	}
	sort.Strings(metrics)

	table := &MetricTable{Metrics: metrics}
	if len(metrics) == 0 {
		return table
	}

	steps := make([]int64, 0, len(groups))
	for step := range groups {
		steps = append(steps, step)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })

	for _, step := range steps {
		g := groups[step]
		row := MetricRow{Step: step, WallTime: g.wallTime, Values: make(map[string]float64, len(metrics))}
		complete := true
		for _, name := range metrics {
			v, ok := g.values[name]
			if !ok {
				complete = false
				break
			}
			row.Values[name] = v
		}
		if complete {
			table.Rows = append(table.Rows, row)
		}
	}
	return table
}
