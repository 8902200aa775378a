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

// BiomarkerOptions configures the continuous-biomarker survival assembly
type BiomarkerOptions struct {
	Groups    subgroups.Combinations
	LabelAll  string
	ConfLevel float64
	Ties      estimators.TiesMethod
	Logger    *internal.Logger
}

func (o *BiomarkerOptions) defaults() {
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

// SurvivalBiomarkers applies the survival subgroup pattern once per
// biomarker: each biomarker enters a covariate-only Cox model as a
// continuous effect (hazard ratio per unit), over the full population and
// every subgroup. Rows carry the biomarker key in addition to the standard
// columns.
func SurvivalBiomarkers(roles frame.VariableRoles, data *frame.Frame, opts BiomarkerOptions) (*result.Table, error) {
	opts.defaults()
	if err := roles.Validate(data); err != nil {
		return nil, err
	}
	if roles.Time == "" || roles.Event == "" {
		return nil, fmt.Errorf("%w: biomarker analysis needs time and event roles", core.ErrInvalidConfiguration)
	}
	if len(roles.Biomarkers) == 0 {
		return nil, fmt.Errorf("%w: no biomarker roles mapped", core.ErrInvalidConfiguration)
	}
	for _, b := range roles.Biomarkers {
		if _, err := data.Numeric(b); err != nil {
			return nil, fmt.Errorf("%w: biomarker: %v", core.ErrInvalidConfiguration, err)
		}
	}

	parts, err := subgroups.Split(data, roles.Subgroups, opts.Groups)
	if err != nil {
		return nil, err
	}

	table := &result.Table{}
	for _, biomarker := range roles.Biomarkers {
		block, err := biomarkerBlock(roles, data, biomarker, varAll, opts.LabelAll, opts.LabelAll, opts)
		if err != nil {
			return nil, err
		}
		table.Bind(block)
		for _, part := range parts {
			if len(part.Rows) == 0 {
				opts.Logger.Warn("empty subgroup %q of %q: reporting missing biomarker estimates", part.Subgroup, part.Var)
			}
			block, err := biomarkerBlock(roles, part.Data, biomarker, part.Var, part.VarLabel, part.Subgroup, opts)
			if err != nil {
				return nil, err
			}
			table.Bind(block)
		}
	}
	return table, nil
}

func biomarkerBlock(roles frame.VariableRoles, data *frame.Frame, biomarker, varName, varLabel, subgroup string, opts BiomarkerOptions) (*result.Table, error) {
	time, err := data.Numeric(roles.Time)
	if err != nil {
		return nil, err
	}
	event, err := data.Bool(roles.Event)
	if err != nil {
		return nil, err
	}

	table := &result.Table{}

	content := result.NewRow(result.RowContent)
	content.Var, content.VarLabel, content.Subgroup = varName, varLabel, subgroup
	content.Biomarker = biomarker
	content.N = data.NumRows()
	km := estimators.KaplanMeier(time, event)
	content.NEvents = float64(km.NEvents)
	content.Median = km.Median()
	table.Append(content)

	fit, err := estimators.FitCox(data, estimators.CoxSpec{
		Time:       roles.Time,
		Event:      roles.Event,
		Covariates: []string{biomarker},
		Strata:     roles.Strata,
		Ties:       opts.Ties,
		ConfLevel:  opts.ConfLevel,
	})
	if err != nil {
		return nil, err
	}
	if fit.Degenerate != "" {
		opts.Logger.Warn("degenerate biomarker fit (%s, subgroup %q): %s", biomarker, subgroup, fit.Degenerate)
	}

	row := result.NewRow(result.RowAnalysis)
	row.Var, row.VarLabel, row.Subgroup = varName, varLabel, subgroup
	row.Biomarker = biomarker
	row.N, row.NEvents = fit.N, float64(fit.NEvents)
	row.ConfLevel = opts.ConfLevel
	if idx := fit.TermIndex(biomarker, "", false); idx >= 0 {
		t := fit.Terms[idx]
		row.HR, row.LCL, row.UCL, row.PValue = t.HR, t.LCL, t.UCL, t.PValue
		row.PValueLabel = "Wald p-value"
	}
	table.Append(row)
	return table, nil
}
