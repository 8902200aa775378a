package excel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"clintab/domain/frame"
)

const csvFixture = `AVAL,EVENT,ARM,SEX,BMRKR1
10.5,Y,Drug X,F,5.2
8,N,Placebo,M,NA
12.25,Y,Drug X,F,4.8
`

func writeCSVFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adsl.csv")
	if err := os.WriteFile(path, []byte(csvFixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestReadFrameCSV(t *testing.T) {
	reader := NewDataReader(writeCSVFixture(t), WithLabel("AVAL", "Survival Time"))
	f, err := reader.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	if f.NumRows() != 3 {
		t.Fatalf("NumRows = %d, want 3", f.NumRows())
	}
	if f.Label("AVAL") != "Survival Time" {
		t.Errorf("label = %q", f.Label("AVAL"))
	}

	aval, err := f.Numeric("AVAL")
	if err != nil {
		t.Fatalf("AVAL should be inferred numeric: %v", err)
	}
	if aval[0] != 10.5 {
		t.Errorf("AVAL[0] = %v", aval[0])
	}
	event, err := f.Bool("EVENT")
	if err != nil {
		t.Fatalf("EVENT should be inferred bool: %v", err)
	}
	if !event[0] || event[1] {
		t.Errorf("EVENT = %v", event)
	}
	arm, err := f.Factor("ARM")
	if err != nil {
		t.Fatalf("ARM should be inferred factor: %v", err)
	}
	if levels := arm.Levels(); levels[0] != "Drug X" || levels[1] != "Placebo" {
		t.Errorf("levels = %v, want first-appearance order", levels)
	}
}

func TestReadFrameKindOverride(t *testing.T) {
	reader := NewDataReader(writeCSVFixture(t), WithKind("SEX", frame.KindString))
	f, err := reader.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	col, ok := f.Column("SEX")
	if !ok || col.Kind != frame.KindString {
		t.Errorf("SEX kind = %v, want the string override", col.Kind)
	}
}

func TestReadFrameExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adsl.xlsx")
	wb := excelize.NewFile()
	cells := [][]interface{}{
		{"AVAL", "EVENT", "ARM"},
		{10.5, "Y", "Drug X"},
		{8.0, "N", "Placebo"},
	}
	for r, row := range cells {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := wb.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatalf("SetCellValue: %v", err)
			}
		}
	}
	if err := wb.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}

	f, err := NewDataReader(path).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.NumRows() != 2 {
		t.Errorf("NumRows = %d, want 2", f.NumRows())
	}
	if _, err := f.Numeric("AVAL"); err != nil {
		t.Errorf("AVAL: %v", err)
	}
}

func TestReadFrameMissingFile(t *testing.T) {
	if _, err := NewDataReader("/nonexistent/adsl.csv").ReadFrame(); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestReadFrameHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("AVAL,EVENT\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := NewDataReader(path).ReadFrame(); err == nil {
		t.Error("expected an error for a dataset without data rows")
	}
}
