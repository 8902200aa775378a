package estimators

import (
	"fmt"
	"math"

	"clintab/domain/frame"
)

// Term describes one column of a regression design matrix
type Term struct {
	Var         string `json:"var"`
	Level       string `json:"level,omitempty"`     // factor level for dummy columns
	ArmLevel    string `json:"arm_level,omitempty"` // arm level for interaction columns
	Interaction bool   `json:"interaction,omitempty"`
}

// Label returns a display name for the term
func (t Term) Label() string {
	name := t.Var
	if t.Level != "" {
		name = fmt.Sprintf("%s (%s)", t.Var, t.Level)
	}
	if t.Interaction {
		return fmt.Sprintf("%s * %s", t.ArmLevel, name)
	}
	return name
}

// design is a column-major regression design matrix with term metadata
type design struct {
	cols  [][]float64
	terms []Term
}

// variableColumns expands one dataset variable into design columns: numeric
// and logical variables map to a single column, factors to treatment
// contrasts against their first level.
func variableColumns(f *frame.Frame, name string) ([][]float64, []Term, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, nil, fmt.Errorf("no column %q", name)
	}
	n := f.NumRows()
	switch col.Kind {
	case frame.KindNumeric:
		vals := make([]float64, n)
		copy(vals, col.Num)
		return [][]float64{vals}, []Term{{Var: name}}, nil
	case frame.KindBool:
		vals := make([]float64, n)
		for i, b := range col.Flag {
			if b {
				vals[i] = 1
			}
		}
		return [][]float64{vals}, []Term{{Var: name}}, nil
	case frame.KindFactor:
		levels := col.Fact.Levels()
		if len(levels) < 2 {
			// Single-level factors carry no contrast; the caller treats the
			// resulting empty expansion as degenerate.
			return nil, nil, nil
		}
		var cols [][]float64
		var terms []Term
		for _, level := range levels[1:] {
			code := col.Fact.LevelIndex(level)
			vals := make([]float64, n)
			for i := 0; i < n; i++ {
				switch {
				case col.Fact.Code(i) < 0:
					// Missing factor values must not pass as the reference
					// level; NaN routes the row into the complete-case filter.
					vals[i] = math.NaN()
				case col.Fact.Code(i) == code:
					vals[i] = 1
				}
			}
			cols = append(cols, vals)
			terms = append(terms, Term{Var: name, Level: level})
		}
		return cols, terms, nil
	default:
		return nil, nil, fmt.Errorf("column %q has kind %s, cannot enter a model", name, col.Kind)
	}
}

// buildDesign assembles the design matrix: arm contrasts first, then
// covariates, then arm x covariate interaction products when requested.
func buildDesign(f *frame.Frame, arm string, covariates []string, interaction bool) (*design, error) {
	d := &design{}
	var armCols [][]float64
	var armTerms []Term
	if arm != "" {
		cols, terms, err := variableColumns(f, arm)
		if err != nil {
			return nil, err
		}
		armCols, armTerms = cols, terms
		d.cols = append(d.cols, cols...)
		d.terms = append(d.terms, terms...)
	}
	for _, cov := range covariates {
		cols, terms, err := variableColumns(f, cov)
		if err != nil {
			return nil, err
		}
		d.cols = append(d.cols, cols...)
		d.terms = append(d.terms, terms...)
		if interaction {
			for ai, acol := range armCols {
				for ci, ccol := range cols {
					prod := make([]float64, len(acol))
					for i := range prod {
						prod[i] = acol[i] * ccol[i]
					}
					d.cols = append(d.cols, prod)
					d.terms = append(d.terms, Term{
						Var:         terms[ci].Var,
						Level:       terms[ci].Level,
						ArmLevel:    armTerms[ai].Level,
						Interaction: true,
					})
				}
			}
		}
	}
	return d, nil
}

// centerOn shifts each column about its mean over the analysis rows. The
// Cox partial likelihood is invariant to location shifts, and centering
// keeps exp(x*beta) well scaled.
func (d *design) centerOn(rows []int) {
	if len(rows) == 0 {
		return
	}
	for _, col := range d.cols {
		mean := 0.0
		for _, r := range rows {
			mean += col[r]
		}
		mean /= float64(len(rows))
		for _, r := range rows {
			col[r] -= mean
		}
	}
}
