package tabulate

import (
	"fmt"

	"clintab/domain/core"
	"clintab/domain/frame"
	"clintab/internal/assemble"
	"clintab/ports"
)

// Statistic names a response subgroup table can request
const (
	StatNResp = "n_rsp" // per arm
	StatProp  = "prop"  // per arm
	StatOR    = "or"
)

// DefaultResponseStats is the column set used when none is requested
var DefaultResponseStats = []string{StatNTot, StatN, StatNResp, StatProp, StatOR, StatCI}

var responseStatNames = map[string]bool{
	StatNTot:   true,
	StatN:      true,
	StatNResp:  true,
	StatProp:   true,
	StatOR:     true,
	StatCI:     true,
	StatPValue: true,
}

// ResponseTableOptions configures the response tabulation adapter
type ResponseTableOptions struct {
	Stats  []string
	Format Format
}

// ResponseSubgroups assembles the binary-response subgroup analysis and
// drives the layout builder with it, mirroring the survival adapter with
// odds ratios in place of hazard ratios. The statistics request is
// validated before any estimation runs.
func ResponseSubgroups(builder ports.TableBuilder, roles frame.VariableRoles, data *frame.Frame, opts assemble.ResponseOptions, tab ResponseTableOptions) (ports.Table, error) {
	if len(tab.Stats) == 0 {
		tab.Stats = DefaultResponseStats
	}
	tab.Format.defaults()
	if err := validateResponseStats(tab.Stats); err != nil {
		return nil, err
	}

	table, err := assemble.ResponseSubgroups(roles, data, opts)
	if err != nil {
		return nil, err
	}

	confLevel := opts.ConfLevel
	if confLevel == 0 {
		confLevel = 0.95
	}
	plan := planColumns(tab.Stats, table.ArmLevels, responseHeaders(confLevel))
	builder.SplitColumns(plan.headers())

	blocks := extractBlocks(table)
	specs, cellBlocks := planRows(blocks)
	builder.SplitRows(specs)

	for r, b := range cellBlocks {
		if b == nil {
			continue
		}
		for c, col := range plan.cols {
			cell, err := responseCell(b, col, tab.Format)
			if err != nil {
				return nil, err
			}
			if err := builder.PopulateCell(r, c, cell); err != nil {
				return nil, err
			}
		}
	}

	annotateForest(builder, plan, table.ArmLevels, StatOR, StatNTot, StatN)
	return builder.Build()
}

func validateResponseStats(stats []string) error {
	for _, s := range stats {
		if !responseStatNames[s] {
			return fmt.Errorf("%w: unknown response statistic %q", core.ErrInvalidConfiguration, s)
		}
	}
	if !contains(stats, StatOR) {
		return core.NewMissingStatisticError(stats, StatOR)
	}
	if !contains(stats, StatCI) {
		return core.NewMissingStatisticError(stats, StatCI)
	}
	if !contains(stats, StatNTot) && !contains(stats, StatN) {
		return core.NewMissingStatisticError(stats, StatNTot)
	}
	return nil
}

func responseHeaders(confLevel float64) map[string]string {
	return map[string]string{
		StatNTot:   "Total n",
		StatN:      "n",
		StatNResp:  "Responders",
		StatProp:   "Response (%)",
		StatOR:     "Odds Ratio",
		StatCI:     ciHeader(confLevel),
		StatPValue: "p-value",
	}
}

// responseCell formats the value of one planned column for one block
func responseCell(b *block, col column, f Format) (string, error) {
	switch col.stat {
	case StatNTot:
		return f.count(b.content.N), nil
	case StatN:
		row, ok := b.armRow(col.arm)
		if !ok {
			return f.NaStr, nil
		}
		return f.count(row.N), nil
	case StatNResp:
		row, ok := b.armRow(col.arm)
		if !ok {
			return f.NaStr, nil
		}
		return f.countf(row.NResp), nil
	case StatProp:
		row, ok := b.armRow(col.arm)
		if !ok {
			return f.NaStr, nil
		}
		return f.percent(row.Prop), nil
	case StatOR:
		if !b.hasEffect {
			return f.NaStr, nil
		}
		return f.ratio(b.effect.OR), nil
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
	return "", fmt.Errorf("%w: unknown response statistic %q", core.ErrInvalidConfiguration, col.stat)
}
