package agg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMetricName_CollapsesAndLowercases(t *testing.T) {
	cases := map[string]string{
		"accuracy_per_epoch":   "accuracy_per_epoch",
		"Accuracy per epoch":   "accuracy_per_epoch",
		"accuracy/per--epoch":  "accuracy_per_epoch",
		"  Loss  ":             "loss",
		"Top-1 Acc. (%)":       "top_1_acc",
		"":                     "",
		"___":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeMetricName(in), "input %q", in)
	}
}

func TestBuildMetricTable_DropsStepsMissingAnyMetric(t *testing.T) {
	// GIVEN loss at steps 1 and 2 but accuracy only at step 1
	records := []EventRecord{
		{Step: 1, WallTime: 100, Metric: "loss", Value: 2.0},
		{Step: 2, WallTime: 101, Metric: "loss", Value: 1.5},
		{Step: 1, WallTime: 100.2, Metric: "accuracy", Value: 0.4},
	}

	// WHEN built
	table := BuildMetricTable(records, nil)

	// THEN only step 1 survives, with both columns set
	if len(table.Rows) != 1 {
		t.Fatalf("surviving rows = %d, want 1", len(table.Rows))
	}
	row := table.Rows[0]
	assert.Equal(t, int64(1), row.Step)
	assert.Equal(t, 2.0, row.Values["loss"])
	assert.Equal(t, 0.4, row.Values["accuracy"])
}

func TestBuildMetricTable_DuplicateStep_TakesMinWallTime(t *testing.T) {
	// GIVEN two workers reporting step 5 at different wall times
	records := []EventRecord{
		{Step: 5, WallTime: 101.5, Metric: "loss", Value: 1.0},
		{Step: 5, WallTime: 100.0, Metric: "accuracy", Value: 0.5},
	}

	// WHEN built
	table := BuildMetricTable(records, nil)

	// THEN the earliest arrival is authoritative for the row's wall time
	if len(table.Rows) != 1 {
		t.Fatalf("surviving rows = %d, want 1", len(table.Rows))
	}
	assert.Equal(t, 100.0, table.Rows[0].WallTime)
}

func TestBuildMetricTable_DuplicateMetric_LastReportWins(t *testing.T) {
	// GIVEN overlapping workers reporting the same metric for the same step
	records := []EventRecord{
		{Step: 3, WallTime: 50, Metric: "loss", Value: 1.0},
		{Step: 3, WallTime: 51, Metric: "loss", Value: 2.0},
	}

	// WHEN built
	table := BuildMetricTable(records, nil)

	// THEN the later record in stream order wins
	if len(table.Rows) != 1 {
		t.Fatalf("surviving rows = %d, want 1", len(table.Rows))
	}
	assert.Equal(t, 2.0, table.Rows[0].Values["loss"])
}

func TestBuildMetricTable_RowsAscendByStepAndAreComplete(t *testing.T) {
	// GIVEN records arriving out of step order across two metrics
	records := []EventRecord{
		{Step: 20, WallTime: 120, Metric: "loss", Value: 0.5},
		{Step: 10, WallTime: 110, Metric: "loss", Value: 1.0},
		{Step: 20, WallTime: 121, Metric: "accuracy", Value: 0.9},
		{Step: 10, WallTime: 111, Metric: "accuracy", Value: 0.8},
		{Step: 15, WallTime: 115, Metric: "loss", Value: 0.7},
	}

	// WHEN built
	table := BuildMetricTable(records, nil)

	// THEN rows ascend by step and every tracked column is set in every row
	if len(table.Rows) != 2 {
		t.Fatalf("surviving rows = %d, want 2 (step 15 lacks accuracy)", len(table.Rows))
	}
	var prev int64 = -1
	for _, row := range table.Rows {
		if row.Step <= prev {
			t.Errorf("rows not ascending: step %d after %d", row.Step, prev)
		}
		prev = row.Step
		for _, name := range table.Metrics {
			if _, ok := row.Values[name]; !ok {
				t.Errorf("step %d: missing column %q", row.Step, name)
			}
		}
	}
}

func TestBuildMetricTable_TrackedSubset_IgnoresOtherMetrics(t *testing.T) {
	// GIVEN a stream carrying a metric outside the tracked set
	records := []EventRecord{
		{Step: 1, WallTime: 10, Metric: "loss", Value: 2.0},
		{Step: 2, WallTime: 11, Metric: "loss", Value: 1.5},
		{Step: 1, WallTime: 10, Metric: "grad norm", Value: 9.0},
	}

	// WHEN built tracking only loss
	table := BuildMetricTable(records, []string{"loss"})

	// THEN completeness is judged against the tracked set alone
	assert.Equal(t, []string{"loss"}, table.Metrics)
	if len(table.Rows) != 2 {
		t.Fatalf("surviving rows = %d, want 2", len(table.Rows))
	}
}

func TestBuildMetricTable_EmptyInput_ValidEmptyTable(t *testing.T) {
	table := BuildMetricTable(nil, nil)
	if !table.Empty() {
		t.Error("expected empty table for empty input")
	}
	table = BuildMetricTable(nil, []string{"loss"})
	if !table.Empty() {
		t.Error("expected empty table when no records carry the tracked metric")
	}
}
