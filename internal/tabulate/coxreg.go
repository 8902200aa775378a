package tabulate

import (
	"fmt"

	"clintab/domain/core"
	"clintab/domain/frame"
	"clintab/domain/result"
	"clintab/internal/assemble"
	"clintab/internal/fitcache"
	"clintab/ports"
)

// DefaultCoxRegStats is the column set used when none is requested. Cox
// regression rows are per model term, so no statistic fans out over arms.
var DefaultCoxRegStats = []string{StatN, StatNEvents, StatHR, StatCI, StatPValue}

var coxRegStatNames = map[string]bool{
	StatN:       true,
	StatNEvents: true,
	StatHR:      true,
	StatCI:      true,
	StatPValue:  true,
}

// CoxRegTableOptions configures the Cox regression tabulation adapter
type CoxRegTableOptions struct {
	Stats  []string
	Format Format
}

// CoxRegression assembles the covariate-adjusted Cox regression analysis and
// drives the layout builder with it. Rows group by covariate: the
// covariate's adjusted-treatment row first, then one row per covariate level
// (or at the covariate mean) when interactions are requested. Model fits go
// through the supplied build-scoped cache. The statistics request is
// validated before any model is fit.
func CoxRegression(builder ports.TableBuilder, roles frame.VariableRoles, data *frame.Frame, opts assemble.CoxRegOptions, cache *fitcache.Cache, tab CoxRegTableOptions) (ports.Table, error) {
	if len(tab.Stats) == 0 {
		tab.Stats = DefaultCoxRegStats
	}
	tab.Format.defaults()
	if err := validateCoxRegStats(tab.Stats); err != nil {
		return nil, err
	}

	table, err := assemble.CoxRegression(roles, data, opts, cache)
	if err != nil {
		return nil, err
	}

	confLevel := opts.ConfLevel
	if confLevel == 0 {
		confLevel = 0.95
	}
	hdrs := coxRegHeaders(confLevel)
	var plan columnPlan
	for _, s := range tab.Stats {
		plan.cols = append(plan.cols, column{stat: s, header: hdrs[s]})
	}
	builder.SplitColumns(plan.headers())

	specs, rows := planCoxRegRows(table)
	builder.SplitRows(specs)

	for r, row := range rows {
		for c, col := range plan.cols {
			cell, err := coxRegCell(row, col, tab.Format)
			if err != nil {
				return nil, err
			}
			if err := builder.PopulateCell(r, c, cell); err != nil {
				return nil, err
			}
		}
	}

	annotateForest(builder, plan, table.ArmLevels, StatHR, StatN)
	return builder.Build()
}

func validateCoxRegStats(stats []string) error {
	for _, s := range stats {
		if !coxRegStatNames[s] {
			return fmt.Errorf("%w: unknown cox regression statistic %q", core.ErrInvalidConfiguration, s)
		}
	}
	if !contains(stats, StatHR) {
		return core.NewMissingStatisticError(stats, StatHR)
	}
	if !contains(stats, StatCI) {
		return core.NewMissingStatisticError(stats, StatCI)
	}
	return nil
}

func coxRegHeaders(confLevel float64) map[string]string {
	return map[string]string{
		StatN:       "n",
		StatNEvents: "Events",
		StatHR:      "Hazard Ratio",
		StatCI:      ciHeader(confLevel),
		StatPValue:  "p-value",
	}
}

// planCoxRegRows lays the regression rows out: the overall row first, then
// each covariate's main row followed by its level rows.
func planCoxRegRows(table *result.Table) ([]ports.RowSpec, []result.Row) {
	var specs []ports.RowSpec
	var rows []result.Row
	for _, row := range table.Rows {
		switch {
		case row.RowType == result.RowContent:
			specs = append(specs, ports.RowSpec{Group: row.VarLabel})
		case row.Subgroup == "":
			specs = append(specs, ports.RowSpec{Group: row.VarLabel})
		default:
			specs = append(specs, ports.RowSpec{Group: row.VarLabel, Label: row.Subgroup})
		}
		rows = append(rows, row)
	}
	return specs, rows
}

func coxRegCell(row result.Row, col column, f Format) (string, error) {
	switch col.stat {
	case StatN:
		return f.count(row.N), nil
	case StatNEvents:
		return f.countf(row.NEvents), nil
	case StatHR:
		return f.ratio(row.HR), nil
	case StatCI:
		return f.interval(row.LCL, row.UCL), nil
	case StatPValue:
		return f.pvalue(row.PValue), nil
	}
	return "", fmt.Errorf("%w: unknown cox regression statistic %q", core.ErrInvalidConfiguration, col.stat)
}
