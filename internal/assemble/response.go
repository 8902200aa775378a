// Package assemble applies the estimators across the full analysis set and
// each subgroup partition, producing the normalized long-format result
// tables consumed by the tabulation adapters.
package assemble

import (
	"fmt"

	"clintab/domain/core"
	"clintab/domain/frame"
	"clintab/domain/result"
	"clintab/internal"
	"clintab/internal/estimators"
	"clintab/internal/subgroups"
)

// DefaultLabelAll is the display label of the full-population block
const DefaultLabelAll = "All Patients"

// varAll tags the full-population rows in the var column
const varAll = "ALL"

// ResponseOptions configures the binary-response subgroup assembly
type ResponseOptions struct {
	Groups      subgroups.Combinations
	LabelAll    string
	ConfLevel   float64
	Method      estimators.TestMethod
	Denominator estimators.Denominator
	Logger      *internal.Logger
}

func (o *ResponseOptions) defaults() {
	if o.LabelAll == "" {
		o.LabelAll = DefaultLabelAll
	}
	if o.ConfLevel == 0 {
		o.ConfLevel = 0.95
	}
	if o.Method == "" {
		o.Method = estimators.MethodNone
	}
	if o.Denominator == "" {
		o.Denominator = estimators.DenomLocal
	}
	if o.Logger == nil {
		o.Logger = internal.DefaultLogger
	}
}

// ResponseSubgroups computes response proportions and odds ratios over the
// full dataset and every requested subgroup. Each block is one content row
// (all subjects in the subgroup) followed by per-arm proportion rows and an
// odds-ratio row. The arm factor's level order is carried on the table and
// re-asserted after row-binding.
func ResponseSubgroups(roles frame.VariableRoles, data *frame.Frame, opts ResponseOptions) (*result.Table, error) {
	opts.defaults()
	if err := roles.Validate(data); err != nil {
		return nil, err
	}
	if roles.Response == "" {
		return nil, fmt.Errorf("%w: response role is required", core.ErrInvalidConfiguration)
	}
	if _, err := data.Bool(roles.Response); err != nil {
		return nil, fmt.Errorf("%w: response: %v", core.ErrInvalidConfiguration, err)
	}
	arm, err := roles.RequireTwoArmLevels(data)
	if err != nil {
		return nil, err
	}
	if opts.Method == estimators.MethodCMH && len(roles.Strata) == 0 {
		return nil, core.NewIncompatibleModeError("CMH test requires a strata role")
	}

	table := &result.Table{ArmLevels: arm.Levels()}
	block, err := responseBlock(roles, data, varAll, opts.LabelAll, opts.LabelAll, opts)
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
		block, err := responseBlock(roles, part.Data, part.Var, part.VarLabel, part.Subgroup, opts)
		if err != nil {
			return nil, err
		}
		table.Bind(block)
	}
	return table, nil
}

// responseBlock builds the content + analysis rows for one analysis set
func responseBlock(roles frame.VariableRoles, data *frame.Frame, varName, varLabel, subgroup string, opts ResponseOptions) (*result.Table, error) {
	rsp, err := data.Bool(roles.Response)
	if err != nil {
		return nil, err
	}
	arm, err := data.Factor(roles.Arm)
	if err != nil {
		return nil, err
	}

	table := &result.Table{ArmLevels: arm.Levels()}

	content := result.NewRow(result.RowContent)
	content.Var, content.VarLabel, content.Subgroup = varName, varLabel, subgroup
	all := estimators.ComputeProportion(rsp)
	content.N = all.N
	content.NResp = float64(all.NResp)
	content.Prop = all.Prop
	table.Append(content)

	for _, ap := range estimators.ProportionByArm(rsp, arm, opts.Denominator) {
		row := result.NewRow(result.RowAnalysis)
		row.Var, row.VarLabel, row.Subgroup = varName, varLabel, subgroup
		row.Arm = ap.Arm
		row.N = ap.N
		row.NResp = float64(ap.NResp)
		row.Prop = ap.Prop
		table.Append(row)
	}

	or := estimators.OddsRatio(rsp, arm, opts.ConfLevel)
	orRow := result.NewRow(result.RowAnalysis)
	orRow.Var, orRow.VarLabel, orRow.Subgroup = varName, varLabel, subgroup
	orRow.N = data.NumRows()
	orRow.OR, orRow.LCL, orRow.UCL = or.OR, or.LCL, or.UCL
	orRow.ConfLevel = or.ConfLevel
	if opts.Method != estimators.MethodNone {
		var strata *frame.Factor
		if len(roles.Strata) > 0 {
			strata, err = combinedStrata(data, roles.Strata)
			if err != nil {
				return nil, err
			}
		}
		test, err := estimators.DifferenceTest(opts.Method, rsp, arm, strata)
		if err != nil {
			return nil, err
		}
		if result.Missing(test.PValue) {
			opts.Logger.Warn("degenerate response table in subgroup %q: %s yields no p-value", subgroup, test.Label)
		}
		orRow.PValue = test.PValue
		orRow.PValueLabel = test.Label
	}
	table.Append(orRow)
	return table, nil
}

// combinedStrata collapses several strata factors into one
func combinedStrata(data *frame.Frame, strata []string) (*frame.Factor, error) {
	if len(strata) == 1 {
		return data.Factor(strata[0])
	}
	values := make([]string, data.NumRows())
	for _, name := range strata {
		fac, err := data.Factor(name)
		if err != nil {
			return nil, err
		}
		for i := range values {
			if values[i] != "" {
				values[i] += "/"
			}
			values[i] += fac.Value(i)
		}
	}
	return frame.NewFactor(values, nil)
}
