package tabulate

import (
	"fmt"

	"clintab/domain/core"
	"clintab/domain/frame"
	"clintab/internal/assemble"
	"clintab/ports"
)

// DefaultBiomarkerStats is the column set used when none is requested
var DefaultBiomarkerStats = []string{StatNTot, StatNTotEvents, StatMedian, StatHR, StatCI}

var biomarkerStatNames = map[string]bool{
	StatNTot:       true,
	StatNTotEvents: true,
	StatMedian:     true,
	StatHR:         true,
	StatCI:         true,
	StatPValue:     true,
}

// BiomarkerTableOptions configures the biomarker tabulation adapter
type BiomarkerTableOptions struct {
	Stats  []string
	Format Format
}

// SurvivalBiomarkers assembles the continuous-biomarker survival analysis
// and drives the layout builder with it. Rows group by biomarker, one row
// per analysis population; the hazard ratio is per biomarker unit, so no
// statistic fans out over arms. The statistics request is validated before
// any model is fit.
func SurvivalBiomarkers(builder ports.TableBuilder, roles frame.VariableRoles, data *frame.Frame, opts assemble.BiomarkerOptions, tab BiomarkerTableOptions) (ports.Table, error) {
	if len(tab.Stats) == 0 {
		tab.Stats = DefaultBiomarkerStats
	}
	tab.Format.defaults()
	if err := validateBiomarkerStats(tab.Stats); err != nil {
		return nil, err
	}

	table, err := assemble.SurvivalBiomarkers(roles, data, opts)
	if err != nil {
		return nil, err
	}

	confLevel := opts.ConfLevel
	if confLevel == 0 {
		confLevel = 0.95
	}
	hdrs := biomarkerHeaders(tab.Format, confLevel)
	var plan columnPlan
	for _, s := range tab.Stats {
		plan.cols = append(plan.cols, column{stat: s, header: hdrs[s]})
	}
	builder.SplitColumns(plan.headers())

	blocks := extractBlocks(table)
	var specs []ports.RowSpec
	var cellBlocks []*block
	prevBiomarker := ""
	for i := range blocks {
		b := &blocks[i]
		if key := b.content.Biomarker; key != prevBiomarker {
			specs = append(specs, ports.RowSpec{Group: data.Label(key)})
			cellBlocks = append(cellBlocks, nil)
			prevBiomarker = key
		}
		specs = append(specs, ports.RowSpec{Group: data.Label(b.content.Biomarker), Label: b.content.Subgroup})
		cellBlocks = append(cellBlocks, b)
	}
	builder.SplitRows(specs)

	for r, b := range cellBlocks {
		if b == nil {
			continue
		}
		for c, col := range plan.cols {
			cell, err := biomarkerCell(b, col, tab.Format)
			if err != nil {
				return nil, err
			}
			if err := builder.PopulateCell(r, c, cell); err != nil {
				return nil, err
			}
		}
	}

	annotateForest(builder, plan, nil, StatHR, StatNTot, StatNTotEvents)
	return builder.Build()
}

func validateBiomarkerStats(stats []string) error {
	for _, s := range stats {
		if !biomarkerStatNames[s] {
			return fmt.Errorf("%w: unknown biomarker statistic %q", core.ErrInvalidConfiguration, s)
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

func biomarkerHeaders(f Format, confLevel float64) map[string]string {
	median := "Median"
	if f.TimeUnit != "" {
		median = fmt.Sprintf("Median (%s)", f.TimeUnit)
	}
	return map[string]string{
		StatNTot:       "Total n",
		StatNTotEvents: "Total Events",
		StatMedian:     median,
		StatHR:         "Hazard Ratio (per unit)",
		StatCI:         ciHeader(confLevel),
		StatPValue:     "p-value",
	}
}

func biomarkerCell(b *block, col column, f Format) (string, error) {
	switch col.stat {
	case StatNTot:
		return f.count(b.content.N), nil
	case StatNTotEvents:
		return f.countf(b.content.NEvents), nil
	case StatMedian:
		return f.fixed(b.content.Median, 1), nil
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
	return "", fmt.Errorf("%w: unknown biomarker statistic %q", core.ErrInvalidConfiguration, col.stat)
}
