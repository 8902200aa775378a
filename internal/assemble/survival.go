package assemble

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"clintab/domain/core"
	"clintab/domain/frame"
	"clintab/domain/result"
	"clintab/internal"
	"clintab/internal/estimators"
	"clintab/internal/subgroups"
)

// SurvivalPValue selects the p-value reported on hazard-ratio rows
type SurvivalPValue string

const (
	PValueWald    SurvivalPValue = "wald"
	PValueLogRank SurvivalPValue = "logrank"
)

// SurvivalOptions configures the time-to-event subgroup assembly
type SurvivalOptions struct {
	Groups    subgroups.Combinations
	LabelAll  string
	ConfLevel float64
	Ties      estimators.TiesMethod
	PValue    SurvivalPValue
	TimeUnit  string // display only, carried through to the adapter
	Logger    *internal.Logger
}

func (o *SurvivalOptions) defaults() {
	if o.LabelAll == "" {
		o.LabelAll = DefaultLabelAll
	}
	if o.ConfLevel == 0 {
		o.ConfLevel = 0.95
	}
	if o.Ties == "" {
		o.Ties = estimators.TiesEfron
	}
	if o.PValue == "" {
		o.PValue = PValueWald
	}
	if o.Logger == nil {
		o.Logger = internal.DefaultLogger
	}
}

// SurvivalSubgroups computes survival-time summaries and treatment hazard
// ratios over the full dataset and every requested subgroup. Each block is
// one content row (all subjects in the subgroup: n_tot, n_tot_events,
// median follow-up), per-arm rows with Kaplan-Meier medians, and one
// hazard-ratio row from an arm-only Cox fit within the subgroup.
func SurvivalSubgroups(roles frame.VariableRoles, data *frame.Frame, opts SurvivalOptions) (*result.Table, error) {
	opts.defaults()
	if err := roles.Validate(data); err != nil {
		return nil, err
	}
	if roles.Time == "" || roles.Event == "" || roles.Arm == "" {
		return nil, fmt.Errorf("%w: survival subgroups need time, event and arm roles", core.ErrInvalidConfiguration)
	}
	if _, err := estimators.ParseTiesMethod(string(opts.Ties)); err != nil {
		return nil, err
	}
	switch opts.PValue {
	case PValueWald, PValueLogRank:
	default:
		return nil, core.NewUnsupportedMethodError("survival p-value", string(opts.PValue))
	}
	arm, err := roles.ArmFactor(data)
	if err != nil {
		return nil, err
	}

	table := &result.Table{ArmLevels: arm.Levels()}
	block, err := survivalBlock(roles, data, varAll, opts.LabelAll, opts.LabelAll, opts)
	if err != nil {
		return nil, err
	}
	table.Bind(block)

	parts, err := subgroups.Split(data, roles.Subgroups, opts.Groups)
	if err != nil {
		return nil, err
	}
	for _, part := range parts {
		if len(part.Rows) == 0 {
			opts.Logger.Warn("empty subgroup %q of %q: reporting missing estimates", part.Subgroup, part.Var)
		}
		block, err := survivalBlock(roles, part.Data, part.Var, part.VarLabel, part.Subgroup, opts)
		if err != nil {
			return nil, err
		}
		table.Bind(block)
	}
	return table, nil
}

// survivalBlock builds the content + analysis rows for one analysis set
func survivalBlock(roles frame.VariableRoles, data *frame.Frame, varName, varLabel, subgroup string, opts SurvivalOptions) (*result.Table, error) {
	time, err := data.Numeric(roles.Time)
	if err != nil {
		return nil, fmt.Errorf("%w: time: %v", core.ErrInvalidConfiguration, err)
	}
	event, err := data.Bool(roles.Event)
	if err != nil {
		return nil, fmt.Errorf("%w: event: %v", core.ErrInvalidConfiguration, err)
	}
	arm, err := data.Factor(roles.Arm)
	if err != nil {
		return nil, err
	}
	missing := 0
	for _, v := range time {
		if result.Missing(v) {
			missing++
		}
	}
	if missing > 0 {
		opts.Logger.Warn("excluding %d subjects with missing survival time in subgroup %q", missing, subgroup)
	}

	table := &result.Table{ArmLevels: arm.Levels()}

	content := result.NewRow(result.RowContent)
	content.Var, content.VarLabel, content.Subgroup = varName, varLabel, subgroup
	content.N = data.NumRows()
	km := estimators.KaplanMeier(time, event)
	content.NEvents = float64(km.NEvents)
	median, lcl, ucl := km.MedianCI(opts.ConfLevel)
	content.Median, content.LCL, content.UCL = median, lcl, ucl
	content.ConfLevel = opts.ConfLevel
	table.Append(content)

	for _, level := range arm.Levels() {
		rows := arm.RowsWithLevel(level)
		armTime := make([]float64, len(rows))
		armEvent := make([]bool, len(rows))
		for i, r := range rows {
			armTime[i] = time[r]
			armEvent[i] = event[r]
		}
		row := result.NewRow(result.RowAnalysis)
		row.Var, row.VarLabel, row.Subgroup = varName, varLabel, subgroup
		row.Arm = level
		row.N = len(rows)
		armKM := estimators.KaplanMeier(armTime, armEvent)
		row.NEvents = float64(armKM.NEvents)
		m, mlcl, mucl := armKM.MedianCI(opts.ConfLevel)
		row.Median, row.LCL, row.UCL = m, mlcl, mucl
		row.ConfLevel = opts.ConfLevel
		if result.Missing(m) && len(rows) > 0 {
			opts.Logger.Debug("median survival not reached for arm %q in subgroup %q", level, subgroup)
		}
		table.Append(row)
	}

	hrRow := result.NewRow(result.RowAnalysis)
	hrRow.Var, hrRow.VarLabel, hrRow.Subgroup = varName, varLabel, subgroup
	hrRow.N = data.NumRows()
	fit, err := estimators.FitCox(data, estimators.CoxSpec{
		Time:      roles.Time,
		Event:     roles.Event,
		Arm:       roles.Arm,
		Strata:    roles.Strata,
		Ties:      opts.Ties,
		ConfLevel: opts.ConfLevel,
	})
	if err != nil {
		return nil, err
	}
	for _, note := range fit.Notes {
		opts.Logger.Warn("cox fit in subgroup %q: %s", subgroup, note)
	}
	if fit.Degenerate != "" {
		opts.Logger.Warn("degenerate cox fit in subgroup %q: %s", subgroup, fit.Degenerate)
	}
	hrRow.NEvents = float64(fit.NEvents)
	hrRow.ConfLevel = opts.ConfLevel
	if len(fit.Terms) > 0 {
		// Two-level arms have one contrast; multi-level arms report the
		// contrast of the last level against the reference, matching the
		// column pairing of the forest layout.
		term := fit.Terms[len(fit.Terms)-1]
		hrRow.HR, hrRow.LCL, hrRow.UCL = term.HR, term.LCL, term.UCL
		hrRow.PValue = term.PValue
		hrRow.PValueLabel = "Wald p-value"
	}
	if opts.PValue == PValueLogRank {
		hrRow.PValue = estimators.LogRank(time, event, arm)
		hrRow.PValueLabel = "Log-rank p-value"
	}
	table.Append(hrRow)
	return table, nil
}

// MedianFollowUp summarizes the observation times of an analysis set,
// irrespective of censoring. Reported in table footers by the CLI.
func MedianFollowUp(data *frame.Frame, timeVar string) (float64, error) {
	time, err := data.Numeric(timeVar)
	if err != nil {
		return 0, err
	}
	return stats.Median(time)
}
