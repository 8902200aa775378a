package assemble

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"clintab/domain/core"
	"clintab/domain/frame"
	"clintab/domain/result"
	"clintab/internal"
	"clintab/internal/estimators"
	"clintab/internal/fitcache"
)

// treatmentKey caches the covariate-free treatment model of a build
const treatmentKey = "~treatment"

// CoxRegOptions configures the Cox regression assembly
type CoxRegOptions struct {
	LabelAll      string
	ConfLevel     float64
	Ties          estimators.TiesMethod
	Interaction   bool
	Multivariable bool
	Logger        *internal.Logger
}

func (o *CoxRegOptions) defaults() {
	if o.LabelAll == "" {
		o.LabelAll = DefaultLabelAll
	}
	if o.ConfLevel == 0 {
		o.ConfLevel = 0.95
	}
	if o.Ties == "" {
		o.Ties = estimators.TiesEfron
	}
	if o.Logger == nil {
		o.Logger = internal.DefaultLogger
	}
}

// CoxRegression assembles the covariate-adjusted Cox regression table. In
// univariable mode one model is fitted per covariate; in multivariable mode
// a single joint model is fitted. Every row generator goes through the
// build-scoped cache, so a covariate's model is fitted once no matter how
// many rows it feeds.
//
// The row selection follows four independent branch contracts rather than
// one unified rule:
//   - "all":       overall treatment effect over the full analysis set
//   - "var_main":  treatment effect adjusted for one covariate (or the
//     covariate's own effect when no arm role is mapped)
//   - "inter":     the interaction p-value attached to the var_main row
//   - "multi_lvl": treatment effect within each covariate level (factor
//     covariates) or at the covariate mean (numeric covariates)
func CoxRegression(roles frame.VariableRoles, data *frame.Frame, opts CoxRegOptions, cache *fitcache.Cache) (*result.Table, error) {
	opts.defaults()
	if err := roles.Validate(data); err != nil {
		return nil, err
	}
	if roles.Time == "" || roles.Event == "" {
		return nil, fmt.Errorf("%w: cox regression needs time and event roles", core.ErrInvalidConfiguration)
	}
	if _, err := estimators.ParseTiesMethod(string(opts.Ties)); err != nil {
		return nil, err
	}
	if opts.Interaction && opts.Multivariable {
		return nil, core.NewIncompatibleModeError("interaction effects are not defined in multivariable mode")
	}
	if opts.Interaction && roles.Arm == "" {
		// Demoted to a warning for compatibility: the table is still built,
		// without interaction rows.
		opts.Logger.Warn("interaction effects require an arm role: disabling interactions")
		opts.Interaction = false
	}

	table := &result.Table{}
	if arm, err := roles.ArmFactor(data); err == nil {
		table.ArmLevels = arm.Levels()
	}

	if opts.Multivariable {
		return coxRegMultivariable(roles, data, opts, cache, table)
	}
	return coxRegUnivariable(roles, data, opts, cache, table)
}

func coxRegUnivariable(roles frame.VariableRoles, data *frame.Frame, opts CoxRegOptions, cache *fitcache.Cache, table *result.Table) (*result.Table, error) {
	// "all" branch: the unadjusted treatment model.
	if roles.Arm != "" {
		fit, err := cache.GetOrFit(treatmentKey, func() (*estimators.CoxFit, error) {
			return estimators.FitCox(data, estimators.CoxSpec{
				Time: roles.Time, Event: roles.Event, Arm: roles.Arm,
				Strata: roles.Strata, Ties: opts.Ties, ConfLevel: opts.ConfLevel,
			})
		})
		if err != nil {
			return nil, err
		}
		reportFitIssues(fit, opts.LabelAll, opts.Logger)
		row := result.NewRow(result.RowContent)
		row.Var, row.VarLabel, row.Subgroup = varAll, opts.LabelAll, opts.LabelAll
		row.N, row.NEvents = fit.N, float64(fit.NEvents)
		row.ConfLevel = opts.ConfLevel
		if idx := lastArmTerm(fit, roles.Arm); idx >= 0 {
			t := fit.Terms[idx]
			row.HR, row.LCL, row.UCL, row.PValue = t.HR, t.LCL, t.UCL, t.PValue
			row.PValueLabel = "Wald p-value"
		}
		table.Append(row)
	} else {
		row := result.NewRow(result.RowContent)
		row.Var, row.VarLabel, row.Subgroup = varAll, opts.LabelAll, opts.LabelAll
		row.N = data.NumRows()
		if events, err := data.Bool(roles.Event); err == nil {
			n := 0
			for _, e := range events {
				if e {
					n++
				}
			}
			row.NEvents = float64(n)
		}
		table.Append(row)
	}

	for _, cov := range roles.Covariates {
		cov := cov
		fit, err := cache.GetOrFit(cov, func() (*estimators.CoxFit, error) {
			return estimators.FitCox(data, estimators.CoxSpec{
				Time: roles.Time, Event: roles.Event, Arm: roles.Arm,
				Covariates: []string{cov}, Strata: roles.Strata,
				Ties: opts.Ties, ConfLevel: opts.ConfLevel,
				Interaction: opts.Interaction,
			})
		})
		if err != nil {
			return nil, err
		}
		reportFitIssues(fit, cov, opts.Logger)
		rows, err := covariateRows(fit, roles, data, cov, opts)
		if err != nil {
			return nil, err
		}
		table.Append(rows...)
	}
	return table, nil
}

// covariateRows emits the var_main row (with the inter branch folded in as
// its p-value) and the multi_lvl rows of one covariate model.
func covariateRows(fit *estimators.CoxFit, roles frame.VariableRoles, data *frame.Frame, cov string, opts CoxRegOptions) ([]result.Row, error) {
	var out []result.Row

	main := result.NewRow(result.RowAnalysis)
	main.Var, main.VarLabel = cov, data.Label(cov)
	main.N, main.NEvents = fit.N, float64(fit.NEvents)
	main.ConfLevel = opts.ConfLevel
	if roles.Arm != "" {
		if idx := lastArmTerm(fit, roles.Arm); idx >= 0 {
			t := fit.Terms[idx]
			main.HR, main.LCL, main.UCL, main.PValue = t.HR, t.LCL, t.UCL, t.PValue
			main.PValueLabel = "Wald p-value"
		}
		if opts.Interaction {
			main.PValue = fit.InteractionP[cov]
			main.PValueLabel = "Interaction p-value"
		}
	} else if idx := fit.TermIndex(cov, firstTermLevel(fit, cov), false); idx >= 0 {
		t := fit.Terms[idx]
		main.HR, main.LCL, main.UCL, main.PValue = t.HR, t.LCL, t.UCL, t.PValue
		main.PValueLabel = "Wald p-value"
	}
	out = append(out, main)

	if !opts.Interaction || roles.Arm == "" {
		return out, nil
	}
	armIdx := lastArmTerm(fit, roles.Arm)
	if armIdx < 0 {
		return out, nil
	}

	col, _ := data.Column(cov)
	switch col.Kind {
	case frame.KindFactor:
		for i, level := range col.Fact.Levels() {
			row := result.NewRow(result.RowAnalysis)
			row.Var, row.VarLabel, row.Subgroup = cov, data.Label(cov), level
			row.ConfLevel = opts.ConfLevel
			row.N = len(col.Fact.RowsWithLevel(level))
			if i == 0 {
				// Reference level: the arm contrast itself.
				t := fit.Terms[armIdx]
				row.HR, row.LCL, row.UCL = t.HR, t.LCL, t.UCL
			} else {
				interIdx := fit.TermIndex(cov, level, true)
				row.HR, row.LCL, row.UCL = fit.CombinedEffect(armIdx, interIdx)
			}
			out = append(out, row)
		}
	case frame.KindNumeric:
		mean, err := stats.Mean(col.Num)
		if err != nil {
			mean = math.NaN()
		}
		row := result.NewRow(result.RowAnalysis)
		row.Var, row.VarLabel = cov, data.Label(cov)
		row.Subgroup = "Mean"
		row.ConfLevel = opts.ConfLevel
		row.N = fit.N
		row.HR, row.LCL, row.UCL = effectAtValue(fit, armIdx, cov, mean)
		out = append(out, row)
	}
	return out, nil
}

// effectAtValue estimates the treatment hazard ratio at a numeric covariate
// value x: exp(b_arm + x * b_inter) with the matching Wald interval.
func effectAtValue(fit *estimators.CoxFit, armIdx int, cov string, x float64) (hr, lcl, ucl float64) {
	nan := math.NaN()
	interIdx := fit.TermIndex(cov, "", true)
	if interIdx < 0 || armIdx < 0 || math.IsNaN(x) {
		return nan, nan, nan
	}
	coef := fit.Terms[armIdx].Coef + x*fit.Terms[interIdx].Coef
	variance := fit.Cov[armIdx][armIdx] + x*x*fit.Cov[interIdx][interIdx] + 2*x*fit.Cov[armIdx][interIdx]
	if math.IsNaN(coef) || math.IsNaN(variance) || variance < 0 {
		return nan, nan, nan
	}
	se := math.Sqrt(variance)
	z := distuv.UnitNormal.Quantile(0.5 + fit.ConfLevel/2)
	return math.Exp(coef), math.Exp(coef - z*se), math.Exp(coef + z*se)
}

func coxRegMultivariable(roles frame.VariableRoles, data *frame.Frame, opts CoxRegOptions, cache *fitcache.Cache, table *result.Table) (*result.Table, error) {
	fit, err := cache.GetOrFit(fitcache.MultivariableKey, func() (*estimators.CoxFit, error) {
		return estimators.FitCox(data, estimators.CoxSpec{
			Time: roles.Time, Event: roles.Event, Arm: roles.Arm,
			Covariates: roles.Covariates, Strata: roles.Strata,
			Ties: opts.Ties, ConfLevel: opts.ConfLevel,
		})
	})
	if err != nil {
		return nil, err
	}
	reportFitIssues(fit, "multivariable model", opts.Logger)

	content := result.NewRow(result.RowContent)
	content.Var, content.VarLabel, content.Subgroup = varAll, opts.LabelAll, opts.LabelAll
	content.N, content.NEvents = fit.N, float64(fit.NEvents)
	content.ConfLevel = opts.ConfLevel
	if roles.Arm != "" {
		if idx := lastArmTerm(fit, roles.Arm); idx >= 0 {
			t := fit.Terms[idx]
			content.HR, content.LCL, content.UCL, content.PValue = t.HR, t.LCL, t.UCL, t.PValue
			content.PValueLabel = "Wald p-value"
		}
	}
	table.Append(content)

	for _, t := range fit.Terms {
		if t.Var == roles.Arm || t.Interaction {
			continue
		}
		row := result.NewRow(result.RowAnalysis)
		row.Var, row.VarLabel = t.Var, data.Label(t.Var)
		row.Subgroup = t.Level
		row.N, row.NEvents = fit.N, float64(fit.NEvents)
		row.ConfLevel = opts.ConfLevel
		row.HR, row.LCL, row.UCL, row.PValue = t.HR, t.LCL, t.UCL, t.PValue
		row.PValueLabel = "Wald p-value"
		table.Append(row)
	}
	return table, nil
}

// lastArmTerm locates the arm contrast reported on treatment-effect rows.
// Two-level arms have exactly one; multi-level arms report the last level
// against the reference.
func lastArmTerm(fit *estimators.CoxFit, arm string) int {
	idx := -1
	for i, t := range fit.Terms {
		if t.Var == arm && !t.Interaction {
			idx = i
		}
	}
	return idx
}

// firstTermLevel finds the level of the first term of a variable, "" for numeric
func firstTermLevel(fit *estimators.CoxFit, varName string) string {
	for _, t := range fit.Terms {
		if t.Var == varName && !t.Interaction {
			return t.Level
		}
	}
	return ""
}

func reportFitIssues(fit *estimators.CoxFit, context string, logger *internal.Logger) {
	for _, note := range fit.Notes {
		logger.Warn("cox fit (%s): %s", context, note)
	}
	if fit.Degenerate != "" {
		logger.Warn("degenerate cox fit (%s): %s", context, fit.Degenerate)
	}
}
