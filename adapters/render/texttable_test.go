package render

import (
	"strings"
	"testing"

	"clintab/ports"
)

func builtTable(t *testing.T) ports.Table {
	t.Helper()
	b := NewBuilder()
	b.SplitColumns([]string{"n", "Hazard Ratio"})
	b.SplitRows([]ports.RowSpec{
		{Group: "All Patients"},
		{Group: "Sex"},
		{Group: "Sex", Label: "F"},
	})
	cells := [][2]string{{"200", "0.70"}, {"", ""}, {"98", "0.64"}}
	for r, row := range cells {
		for c, cell := range row {
			if cell == "" {
				continue
			}
			if err := b.PopulateCell(r, c, cell); err != nil {
				t.Fatalf("PopulateCell(%d, %d): %v", r, c, err)
			}
		}
	}
	b.Annotate(ports.AnnotColX, 1)
	table, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return table
}

func TestBuilderRoundTrip(t *testing.T) {
	table := builtTable(t)

	if got := table.Cell(0, 1); got != "0.70" {
		t.Errorf("Cell(0,1) = %q", got)
	}
	if got := table.Cell(1, 0); got != "" {
		t.Errorf("header row cell = %q, want empty", got)
	}
	if v, ok := table.Annotation(ports.AnnotColX); !ok || v.(int) != 1 {
		t.Errorf("annotation = %v", v)
	}
	if len(table.Rows()) != 3 || len(table.ColumnHeaders()) != 2 {
		t.Errorf("splits = %d rows x %d cols", len(table.Rows()), len(table.ColumnHeaders()))
	}
}

func TestPopulateCellBounds(t *testing.T) {
	b := NewBuilder()
	b.SplitColumns([]string{"n"})
	b.SplitRows([]ports.RowSpec{{Group: "All Patients"}})

	if err := b.PopulateCell(1, 0, "x"); err == nil {
		t.Error("expected a row bounds error")
	}
	if err := b.PopulateCell(0, 1, "x"); err == nil {
		t.Error("expected a column bounds error")
	}
}

func TestBuildRequiresSplits(t *testing.T) {
	if _, err := NewBuilder().Build(); err == nil {
		t.Error("expected an error without declared splits")
	}
	b := NewBuilder()
	b.SplitColumns([]string{"n"})
	if _, err := b.Build(); err == nil {
		t.Error("expected an error without a row split")
	}
}

func TestRenderLayout(t *testing.T) {
	table := builtTable(t)
	var sb strings.Builder
	if err := table.Render(&sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := sb.String()

	if !strings.Contains(out, "Hazard Ratio") {
		t.Error("rendered output misses the column header")
	}
	if !strings.Contains(out, "All Patients") {
		t.Error("rendered output misses the group label")
	}
	if !strings.Contains(out, "  F") {
		t.Error("labeled rows should be indented beneath their group")
	}
}
