package result

import (
	"math"
	"testing"
)

func TestNewRowStartsMissing(t *testing.T) {
	row := NewRow(RowAnalysis)
	for name, v := range map[string]float64{
		"prop": row.Prop, "median": row.Median, "hr": row.HR, "or": row.OR,
		"lcl": row.LCL, "ucl": row.UCL, "pval": row.PValue,
	} {
		if !Missing(v) {
			t.Errorf("%s = %v, want missing", name, v)
		}
	}
}

func TestMissing(t *testing.T) {
	if Missing(0) || Missing(1.5) {
		t.Error("finite values must not be missing")
	}
	if !Missing(math.NaN()) {
		t.Error("NaN must be missing")
	}
}

func TestBindKeepsArmLevelOrder(t *testing.T) {
	// The receiver declares a non-alphabetical level order; binding blocks
	// whose subsets happened to observe the levels differently must not
	// disturb it.
	table := &Table{ArmLevels: []string{"Placebo", "Drug X"}}
	block := &Table{ArmLevels: []string{"Drug X", "Placebo"}}
	block.Append(NewRow(RowContent))
	table.Bind(block)

	if len(table.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(table.Rows))
	}
	if table.ArmLevels[0] != "Placebo" || table.ArmLevels[1] != "Drug X" {
		t.Errorf("ArmLevels = %v, want the receiver's order kept", table.ArmLevels)
	}
}

func TestBindAdoptsLevelsWhenEmpty(t *testing.T) {
	table := &Table{}
	block := &Table{ArmLevels: []string{"A", "B"}}
	table.Bind(block)
	if len(table.ArmLevels) != 2 {
		t.Errorf("ArmLevels = %v, want adopted from the first block", table.ArmLevels)
	}
}

func TestRowTypeFilters(t *testing.T) {
	table := &Table{}
	content := NewRow(RowContent)
	content.Subgroup = "F"
	a1 := NewRow(RowAnalysis)
	a1.Subgroup = "F"
	a2 := NewRow(RowAnalysis)
	a2.Subgroup = "M"
	table.Append(content, a1, a2)

	if got := len(table.ContentRows()); got != 1 {
		t.Errorf("ContentRows = %d, want 1", got)
	}
	if got := len(table.AnalysisRows()); got != 2 {
		t.Errorf("AnalysisRows = %d, want 2", got)
	}
	subs := table.Subgroups()
	if len(subs) != 2 || subs[0] != "F" || subs[1] != "M" {
		t.Errorf("Subgroups = %v, want [F M] in appearance order", subs)
	}
}
