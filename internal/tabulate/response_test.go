package tabulate

import (
	"errors"
	"testing"

	"clintab/adapters/render"
	"clintab/domain/core"
	"clintab/domain/frame"
	"clintab/internal/assemble"
	"clintab/ports"
)

func responseTabFrame() *frame.Frame {
	return frame.MustNew(
		frame.BoolColumn("RSP", []bool{true, false, false, false, true, false}),
		frame.FactorColumn("ARM",
			frame.MustFactor([]string{"A", "A", "A", "A", "B", "B"}, []string{"A", "B"})),
		frame.FactorColumn("SEX",
			frame.MustFactor([]string{"F", "F", "F", "M", "M", "M"}, []string{"F", "M"})).
			WithLabel("Sex"),
	)
}

func responseTabRoles() frame.VariableRoles {
	return frame.VariableRoles{Response: "RSP", Arm: "ARM", Subgroups: []string{"SEX"}}
}

func TestResponseSubgroupsTable(t *testing.T) {
	table, err := ResponseSubgroups(render.NewBuilder(), responseTabRoles(), responseTabFrame(),
		assemble.ResponseOptions{}, ResponseTableOptions{})
	if err != nil {
		t.Fatalf("ResponseSubgroups: %v", err)
	}

	// Default stats: n_tot + (n, n_rsp, prop) per arm + or + ci.
	headers := table.ColumnHeaders()
	if len(headers) != 9 {
		t.Fatalf("got %d columns, want 9: %v", len(headers), headers)
	}
	if headers[0] != "Total n" || headers[7] != "Odds Ratio" {
		t.Errorf("headers = %v", headers)
	}

	rows := table.Rows()
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4: %v", len(rows), rows)
	}

	// The all-patients row carries the hand-checked cells.
	wantCells := map[int]string{
		0: "6",     // total n
		1: "4",     // arm A n
		2: "2",     // arm B n
		3: "1",     // arm A responders
		4: "1",     // arm B responders
		5: "25.0%", // arm A proportion
		6: "50.0%", // arm B proportion
		7: "3.00",  // odds ratio, B versus A
	}
	for col, want := range wantCells {
		if got := table.Cell(0, col); got != want {
			t.Errorf("cell(0, %d) = %q, want %q", col, got, want)
		}
	}

	if v, ok := table.Annotation(ports.AnnotColX); !ok || v.(int) != 7 {
		t.Errorf("col_x = %v, want the odds-ratio column index 7", v)
	}
	hdr, ok := table.Annotation(ports.AnnotForestHeader)
	if !ok || hdr.([]string)[0] != "B Better" {
		t.Errorf("forest header = %v", hdr)
	}
}

func TestResponseStatsValidatedFirst(t *testing.T) {
	data := frame.MustNew(frame.NumericColumn("X", nil))
	roles := frame.VariableRoles{Response: "RSP", Arm: "ARM"}

	_, err := ResponseSubgroups(render.NewBuilder(), roles, data,
		assemble.ResponseOptions{}, ResponseTableOptions{Stats: []string{"n", "ci"}})
	if !errors.Is(err, core.ErrMissingStatistic) {
		t.Errorf("err = %v, want missing-statistic for the absent or", err)
	}

	_, err = ResponseSubgroups(render.NewBuilder(), roles, data,
		assemble.ResponseOptions{}, ResponseTableOptions{Stats: []string{"or", "ci"}})
	if !errors.Is(err, core.ErrMissingStatistic) {
		t.Errorf("err = %v, want missing-statistic when no count column is requested", err)
	}
}
