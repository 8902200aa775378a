// Package tabulate translates assembled result tables into the layout
// grammar's row/column split instructions, producing presentational tables
// annotated for the forest-plot renderer.
package tabulate

import (
	"fmt"

	"clintab/domain/result"
)

// Format controls cell rendering of estimate values
type Format struct {
	NaStr    string // placeholder for missing estimates
	TimeUnit string // display-only unit suffix on survival-time headers
}

func (f *Format) defaults() {
	if f.NaStr == "" {
		f.NaStr = "NA"
	}
}

func (f Format) count(n int) string {
	return fmt.Sprintf("%d", n)
}

func (f Format) countf(v float64) string {
	if result.Missing(v) {
		return f.NaStr
	}
	return fmt.Sprintf("%.0f", v)
}

func (f Format) fixed(v float64, prec int) string {
	if result.Missing(v) {
		return f.NaStr
	}
	return fmt.Sprintf("%.*f", prec, v)
}

func (f Format) percent(v float64) string {
	if result.Missing(v) {
		return f.NaStr
	}
	return fmt.Sprintf("%.1f%%", v*100)
}

func (f Format) ratio(v float64) string {
	return f.fixed(v, 2)
}

func (f Format) interval(lcl, ucl float64) string {
	if result.Missing(lcl) && result.Missing(ucl) {
		return f.NaStr
	}
	return fmt.Sprintf("(%s, %s)", f.fixed(lcl, 2), f.fixed(ucl, 2))
}

func (f Format) pvalue(p float64) string {
	if result.Missing(p) {
		return f.NaStr
	}
	if p < 0.0001 {
		return "<0.0001"
	}
	return fmt.Sprintf("%.4f", p)
}

// ciHeader renders the interval column header, e.g. "95% CI"
func ciHeader(confLevel float64) string {
	return fmt.Sprintf("%.0f%% CI", confLevel*100)
}
