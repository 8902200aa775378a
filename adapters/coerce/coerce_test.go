package coerce

import (
	"math"
	"testing"

	"clintab/domain/frame"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   frame.Kind
	}{
		{"numeric", []string{"1.5", "2", "NA", "3.25"}, frame.KindNumeric},
		{"flags", []string{"Y", "N", "Y"}, frame.KindBool},
		{"factor", []string{"LOW", "HIGH", "LOW"}, frame.KindFactor},
		{"mixed falls back to factor", []string{"1.5", "LOW"}, frame.KindFactor},
		{"all missing", []string{"", "NA", "."}, frame.KindString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Infer(tt.values); got != tt.want {
				t.Errorf("Infer = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColumnNumeric(t *testing.T) {
	col, err := Column("AVAL", "Survival Time", frame.KindNumeric, []string{"1.5", "NA", "3"})
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	if col.Label != "Survival Time" {
		t.Errorf("label = %q", col.Label)
	}
	if col.Num[0] != 1.5 || !math.IsNaN(col.Num[1]) || col.Num[2] != 3 {
		t.Errorf("values = %v", col.Num)
	}

	if _, err := Column("AVAL", "", frame.KindNumeric, []string{"abc"}); err == nil {
		t.Error("expected an error for a non-numeric cell")
	}
}

func TestColumnBool(t *testing.T) {
	col, err := Column("EVENT", "", frame.KindBool, []string{"Y", "n", "TRUE", "0"})
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	want := []bool{true, false, true, false}
	for i, w := range want {
		if col.Flag[i] != w {
			t.Errorf("flag[%d] = %v, want %v", i, col.Flag[i], w)
		}
	}

	if _, err := Column("EVENT", "", frame.KindBool, []string{"Y", ""}); err == nil {
		t.Error("expected an error for a missing flag value")
	}
	if _, err := Column("EVENT", "", frame.KindBool, []string{"maybe"}); err == nil {
		t.Error("expected an error for an unrecognized flag value")
	}
}

func TestColumnFactor(t *testing.T) {
	col, err := Column("SEX", "Sex", frame.KindFactor, []string{"F", "M", "NA", "F"})
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	if col.Fact.NumLevels() != 2 {
		t.Errorf("levels = %v", col.Fact.Levels())
	}
	if col.Fact.Code(2) != -1 {
		t.Errorf("missing cell code = %d, want -1", col.Fact.Code(2))
	}
}
