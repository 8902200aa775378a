package tabulate

import (
	"errors"
	"math"
	"testing"

	"clintab/adapters/render"
	"clintab/domain/core"
	"clintab/domain/frame"
	"clintab/internal/assemble"
	"clintab/internal/fitcache"
	"clintab/internal/testkit"
)

func TestCoxRegressionTable(t *testing.T) {
	data := testkit.NewTrialFrame(testkit.TrialConfig{N: 300, Seed: 9})
	roles := frame.VariableRoles{
		Time: "AVAL", Event: "EVENT", Arm: "ARM",
		Covariates: []string{"SEX", "BMRKR1"},
	}
	cache := fitcache.New()

	table, err := CoxRegression(render.NewBuilder(), roles, data,
		assemble.CoxRegOptions{Interaction: true}, cache, CoxRegTableOptions{})
	if err != nil {
		t.Fatalf("CoxRegression: %v", err)
	}

	headers := table.ColumnHeaders()
	if len(headers) != 5 || headers[2] != "Hazard Ratio" {
		t.Fatalf("headers = %v", headers)
	}

	// All-patients row, then per covariate a main row plus its level rows:
	// SEX gets F and M, BMRKR1 the effect at its mean.
	rows := table.Rows()
	if len(rows) != 6 {
		t.Fatalf("got %d rows, want 6: %v", len(rows), rows)
	}
	if rows[0].Group != "All Patients" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Group != "Sex" || rows[1].Label != "" {
		t.Errorf("rows[1] = %+v, want the SEX main row", rows[1])
	}
	if rows[2].Label != "F" || rows[3].Label != "M" {
		t.Errorf("SEX level rows = [%q %q]", rows[2].Label, rows[3].Label)
	}
	if rows[5].Label != "Mean" {
		t.Errorf("rows[5] = %+v, want the covariate-mean row", rows[5])
	}

	if got := table.Cell(0, 2); got == "" || got == "NA" {
		t.Errorf("overall hazard ratio cell = %q", got)
	}
	if cache.Fits() != 3 {
		t.Errorf("Fits() = %d, want treatment + one per covariate", cache.Fits())
	}
}

func TestCoxRegStatsValidatedFirst(t *testing.T) {
	data := frame.MustNew(frame.NumericColumn("X", nil))
	roles := frame.VariableRoles{Time: "AVAL", Event: "EVENT"}

	_, err := CoxRegression(render.NewBuilder(), roles, data,
		assemble.CoxRegOptions{}, fitcache.New(), CoxRegTableOptions{Stats: []string{"n", "hr"}})
	if !errors.Is(err, core.ErrMissingStatistic) {
		t.Errorf("err = %v, want missing-statistic for the absent ci", err)
	}

	_, err = CoxRegression(render.NewBuilder(), roles, data,
		assemble.CoxRegOptions{}, fitcache.New(), CoxRegTableOptions{Stats: []string{"hr", "ci", "n_tot"}})
	if !core.IsConfigurationError(err) {
		t.Errorf("err = %v, want configuration error for a statistic this table lacks", err)
	}
}

func TestFormatCells(t *testing.T) {
	var f Format
	f.defaults()

	if got := f.pvalue(0.00001); got != "<0.0001" {
		t.Errorf("pvalue = %q", got)
	}
	if got := f.pvalue(0.0234); got != "0.0234" {
		t.Errorf("pvalue = %q", got)
	}
	if got := f.interval(0.5, 2.25); got != "(0.50, 2.25)" {
		t.Errorf("interval = %q", got)
	}
	if got := f.percent(0.1234); got != "12.3%" {
		t.Errorf("percent = %q", got)
	}
	if got := f.ratio(math.NaN()); got != "NA" {
		t.Errorf("missing ratio = %q", got)
	}
}
