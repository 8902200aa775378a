// Package result defines the long-format output of the data-frame
// assemblers: one row per (subgroup x arm) or per subgroup, tagged as a
// content (aggregate) or analysis (estimator output) row.
package result

import (
	"math"
)

// RowType distinguishes aggregate rows from estimator rows
type RowType string

const (
	RowContent  RowType = "content"
	RowAnalysis RowType = "analysis"
)

// Row is one long-format result row. Estimate fields that do not apply to a
// row, or that could not be computed from degenerate data, are NaN and are
// rendered with the configured missing-value placeholder.
type Row struct {
	RowType   RowType `json:"row_type"`
	Var       string  `json:"var"`
	VarLabel  string  `json:"var_label"`
	Subgroup  string  `json:"subgroup"`
	Arm       string  `json:"arm,omitempty"`
	Biomarker string  `json:"biomarker,omitempty"`

	N           int     `json:"n"`
	NResp       float64 `json:"n_rsp"`
	NEvents     float64 `json:"n_events"`
	Prop        float64 `json:"prop"`
	Median      float64 `json:"median"`
	HR          float64 `json:"hr"`
	OR          float64 `json:"or"`
	LCL         float64 `json:"lcl"`
	UCL         float64 `json:"ucl"`
	ConfLevel   float64 `json:"conf_level"`
	PValue      float64 `json:"pval"`
	PValueLabel string  `json:"pval_label,omitempty"`
}

// NewRow creates a row with every estimate field missing
func NewRow(rowType RowType) Row {
	nan := math.NaN()
	return Row{
		RowType:   rowType,
		NResp:     nan,
		NEvents:   nan,
		Prop:      nan,
		Median:    nan,
		HR:        nan,
		OR:        nan,
		LCL:       nan,
		UCL:       nan,
		ConfLevel: nan,
		PValue:    nan,
	}
}

// Missing reports whether an estimate value is absent
func Missing(v float64) bool {
	return math.IsNaN(v)
}

// Table is an ordered collection of result rows. ArmLevels records the input
// arm factor's level order so it survives row-binding across subgroups.
type Table struct {
	Rows      []Row    `json:"rows"`
	ArmLevels []string `json:"arm_levels,omitempty"`
}

// Append adds rows to the table
func (t *Table) Append(rows ...Row) {
	t.Rows = append(t.Rows, rows...)
}

// Bind concatenates another table, keeping the receiver's arm level order.
// Naive concatenation of per-subgroup results would silently drop level
// order; Bind re-asserts it.
func (t *Table) Bind(other *Table) {
	t.Rows = append(t.Rows, other.Rows...)
	if len(t.ArmLevels) == 0 {
		t.ArmLevels = other.ArmLevels
	}
}

// ContentRows returns the aggregate rows in order
func (t *Table) ContentRows() []Row {
	var out []Row
	for _, r := range t.Rows {
		if r.RowType == RowContent {
			out = append(out, r)
		}
	}
	return out
}

// AnalysisRows returns the estimator rows in order
func (t *Table) AnalysisRows() []Row {
	var out []Row
	for _, r := range t.Rows {
		if r.RowType == RowAnalysis {
			out = append(out, r)
		}
	}
	return out
}

// Subgroups returns the distinct subgroup labels in first-appearance order
func (t *Table) Subgroups() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rows {
		if !seen[r.Subgroup] {
			seen[r.Subgroup] = true
			out = append(out, r.Subgroup)
		}
	}
	return out
}
