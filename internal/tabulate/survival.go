package tabulate

import (
	"fmt"

	"clintab/domain/core"
	"clintab/domain/frame"
	"clintab/internal/assemble"
	"clintab/ports"
)

// Statistic names a survival subgroup table can request. Per-arm statistics
// expand to one column per arm level.
const (
	StatNTot       = "n_tot"
	StatNTotEvents = "n_tot_events"
	StatN          = "n"        // per arm
	StatNEvents    = "n_events" // per arm
	StatMedian     = "median"   // per arm
	StatHR         = "hr"
	StatCI         = "ci"
	StatPValue     = "pval"
)

// DefaultSurvivalStats is the column set used when none is requested
var DefaultSurvivalStats = []string{StatNTot, StatN, StatNEvents, StatMedian, StatHR, StatCI}

var survivalStatNames = map[string]bool{
	StatNTot:       true,
	StatNTotEvents: true,
	StatN:          true,
	StatNEvents:    true,
	StatMedian:     true,
	StatHR:         true,
	StatCI:         true,
	StatPValue:     true,
}

// SurvivalTableOptions configures the survival tabulation adapter
type SurvivalTableOptions struct {
	Stats  []string
	Format Format
}

// SurvivalSubgroups assembles the survival subgroup analysis and drives the
// layout builder with it: one column per requested statistic (per-arm
// statistics fan out over the arm levels), one summary row per subgroup
// beneath a header row per subgroup variable, plus the forest-plot
// annotations. The statistics request is validated before any model is fit.
func SurvivalSubgroups(builder ports.TableBuilder, roles frame.VariableRoles, data *frame.Frame, opts assemble.SurvivalOptions, tab SurvivalTableOptions) (ports.Table, error) {
	if len(tab.Stats) == 0 {
		tab.Stats = DefaultSurvivalStats
	}
	tab.Format.defaults()
	tab.Format.TimeUnit = opts.TimeUnit
	if err := validateSurvivalStats(tab.Stats); err != nil {
		return nil, err
	}

	table, err := assemble.SurvivalSubgroups(roles, data, opts)
	if err != nil {
		return nil, err
	}

	confLevel := opts.ConfLevel
	if confLevel == 0 {
		confLevel = 0.95
	}
	plan := planColumns(tab.Stats, table.ArmLevels, survivalHeaders(tab.Format, confLevel))
	builder.SplitColumns(plan.headers())

	blocks := extractBlocks(table)
	specs, cellBlocks := planRows(blocks)
	builder.SplitRows(specs)

	for r, b := range cellBlocks {
		if b == nil {
			continue
		}
		for c, col := range plan.cols {
			cell, err := survivalCell(b, col, tab.Format)
			if err != nil {
				return nil, err
			}
			if err := builder.PopulateCell(r, c, cell); err != nil {
				return nil, err
			}
		}
	}

	annotateForest(builder, plan, table.ArmLevels, StatHR, StatNTot, StatNTotEvents)
	if opts.TimeUnit != "" {
		builder.Annotate(ports.AnnotTimeUnit, opts.TimeUnit)
	}
	return builder.Build()
}

func validateSurvivalStats(stats []string) error {
	for _, s := range stats {
		if !survivalStatNames[s] {
			return fmt.Errorf("%w: unknown survival statistic %q", core.ErrInvalidConfiguration, s)
		}
	}
	if !contains(stats, StatHR) {
		return core.NewMissingStatisticError(stats, StatHR)
	}
	if !contains(stats, StatCI) {
		return core.NewMissingStatisticError(stats, StatCI)
	}
	if !contains(stats, StatNTot) && !contains(stats, StatNTotEvents) {
		return core.NewMissingStatisticError(stats, StatNTot)
	}
	return nil
}

// survivalHeaders maps statistic names to column header text. Per-arm
// statistics receive the arm level as a prefix when expanded.
func survivalHeaders(f Format, confLevel float64) map[string]string {
	median := "Median"
	if f.TimeUnit != "" {
		median = fmt.Sprintf("Median (%s)", f.TimeUnit)
	}
	return map[string]string{
		StatNTot:       "Total n",
		StatNTotEvents: "Total Events",
		StatN:          "n",
		StatNEvents:    "Events",
		StatMedian:     median,
		StatHR:         "Hazard Ratio",
		StatCI:         ciHeader(confLevel),
		StatPValue:     "p-value",
	}
}

// survivalCell formats the value of one planned column for one block
func survivalCell(b *block, col column, f Format) (string, error) {
	switch col.stat {
	case StatNTot:
		return f.count(b.content.N), nil
	case StatNTotEvents:
		return f.countf(b.content.NEvents), nil
	case StatN:
		row, ok := b.armRow(col.arm)
		if !ok {
			return f.NaStr, nil
		}
		return f.count(row.N), nil
	case StatNEvents:
		row, ok := b.armRow(col.arm)
		if !ok {
			return f.NaStr, nil
		}
		return f.countf(row.NEvents), nil
	case StatMedian:
		row, ok := b.armRow(col.arm)
		if !ok {
			return f.NaStr, nil
		}
		return f.fixed(row.Median, 1), nil
	case StatHR:
		if !b.hasEffect {
			return f.NaStr, nil
		}
		return f.ratio(b.effect.HR), nil
	case StatCI:
		if !b.hasEffect {
			return f.NaStr, nil
		}
		return f.interval(b.effect.LCL, b.effect.UCL), nil
	case StatPValue:
		if !b.hasEffect {
			return f.NaStr, nil
		}
		return f.pvalue(b.effect.PValue), nil
	}
	return "", fmt.Errorf("%w: unknown survival statistic %q", core.ErrInvalidConfiguration, col.stat)
}

func contains(stats []string, name string) bool {
	for _, s := range stats {
		if s == name {
			return true
		}
	}
	return false
}
