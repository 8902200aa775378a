package subgroups

import (
	"testing"

	"clintab/domain/core"
	"clintab/domain/frame"
)

func subgroupFrame() *frame.Frame {
	return frame.MustNew(
		frame.FactorColumn("SEX",
			frame.MustFactor([]string{"F", "M", "F", "M", "F"}, []string{"F", "M"})).
			WithLabel("Sex"),
		frame.FactorColumn("GRADE",
			frame.MustFactor([]string{"I", "II", "III", "I", "II"}, []string{"I", "II", "III"})),
	)
}

func TestSplitLevelAndVariableOrder(t *testing.T) {
	f := subgroupFrame()
	parts, err := Split(f, []string{"GRADE", "SEX"}, nil)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	want := []struct {
		varName  string
		subgroup string
		n        int
	}{
		{"GRADE", "I", 2},
		{"GRADE", "II", 2},
		{"GRADE", "III", 1},
		{"SEX", "F", 3},
		{"SEX", "M", 2},
	}
	if len(parts) != len(want) {
		t.Fatalf("got %d partitions, want %d", len(parts), len(want))
	}
	for i, w := range want {
		p := parts[i]
		if p.Var != w.varName || p.Subgroup != w.subgroup || len(p.Rows) != w.n {
			t.Errorf("partition %d = (%s, %s, %d rows), want (%s, %s, %d)",
				i, p.Var, p.Subgroup, len(p.Rows), w.varName, w.subgroup, w.n)
		}
		if p.Data.NumRows() != w.n {
			t.Errorf("partition %d data has %d rows, want %d", i, p.Data.NumRows(), w.n)
		}
	}

	if parts[3].VarLabel != "Sex" {
		t.Errorf("VarLabel = %q, want the column label", parts[3].VarLabel)
	}
	if parts[0].VarLabel != "GRADE" {
		t.Errorf("VarLabel = %q, want the name fallback", parts[0].VarLabel)
	}
}

func TestSplitCombinations(t *testing.T) {
	f := subgroupFrame()
	combos := Combinations{
		"GRADE": {
			{Name: "I/II", Levels: []string{"I", "II"}},
			{Name: "III", Levels: []string{"III"}},
		},
	}
	parts, err := Split(f, []string{"GRADE"}, combos)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d partitions, want 2", len(parts))
	}
	if parts[0].Subgroup != "I/II" || len(parts[0].Rows) != 4 {
		t.Errorf("combined partition = (%s, %d rows), want (I/II, 4)",
			parts[0].Subgroup, len(parts[0].Rows))
	}
	if parts[1].Subgroup != "III" || len(parts[1].Rows) != 1 {
		t.Errorf("partition = (%s, %d rows), want (III, 1)",
			parts[1].Subgroup, len(parts[1].Rows))
	}
}

func TestSplitUnknownCombinationLevel(t *testing.T) {
	f := subgroupFrame()
	combos := Combinations{
		"GRADE": {{Name: "bad", Levels: []string{"IV"}}},
	}
	_, err := Split(f, []string{"GRADE"}, combos)
	if !core.IsConfigurationError(err) {
		t.Errorf("err = %v, want configuration error", err)
	}
}

func TestSplitEmptyLevelKeepsPartition(t *testing.T) {
	f := frame.MustNew(
		frame.FactorColumn("SEX",
			frame.MustFactor([]string{"F", "F"}, []string{"F", "M"})),
	)
	parts, err := Split(f, []string{"SEX"}, nil)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("got %d partitions, want one per declared level", len(parts))
	}
	empty := parts[1]
	if empty.Subgroup != "M" || len(empty.Rows) != 0 {
		t.Fatalf("partition = (%s, %d rows), want the empty M level", empty.Subgroup, len(empty.Rows))
	}
	// The empty slice still knows the full level set.
	fac, err := empty.Data.Factor("SEX")
	if err != nil {
		t.Fatalf("Factor: %v", err)
	}
	if fac.NumLevels() != 2 {
		t.Errorf("empty partition kept %d levels, want 2", fac.NumLevels())
	}
}

func TestSplitNonFactorVariable(t *testing.T) {
	f := frame.MustNew(frame.NumericColumn("AGE", []float64{40, 60}))
	_, err := Split(f, []string{"AGE"}, nil)
	if !core.IsConfigurationError(err) {
		t.Errorf("err = %v, want configuration error", err)
	}
}
