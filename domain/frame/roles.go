package frame

import (
	"clintab/domain/core"
)

// VariableRoles maps logical analysis roles to column names of the analysis
// dataset. A role left empty (or an empty slice) is simply not used by the
// requesting assembler.
type VariableRoles struct {
	Time       string   `json:"time,omitempty"`
	Event      string   `json:"event,omitempty"`
	Arm        string   `json:"arm,omitempty"`
	Response   string   `json:"response,omitempty"`
	Covariates []string `json:"covariates,omitempty"`
	Strata     []string `json:"strata,omitempty"`
	Subgroups  []string `json:"subgroups,omitempty"`
	Biomarkers []string `json:"biomarkers,omitempty"`
}

// pairs lists every referenced (role, column) pair for validation
func (r VariableRoles) pairs() [][2]string {
	out := [][2]string{}
	add := func(role, col string) {
		if col != "" {
			out = append(out, [2]string{role, col})
		}
	}
	add("time", r.Time)
	add("event", r.Event)
	add("arm", r.Arm)
	add("response", r.Response)
	for _, c := range r.Covariates {
		add("covariates", c)
	}
	for _, c := range r.Strata {
		add("strata", c)
	}
	for _, c := range r.Subgroups {
		add("subgroups", c)
	}
	for _, c := range r.Biomarkers {
		add("biomarkers", c)
	}
	return out
}

// Validate checks that every referenced column exists in the dataset.
// Runs at call entry of every assembler; failures abort the tabulation.
func (r VariableRoles) Validate(f *Frame) error {
	for _, p := range r.pairs() {
		if !f.HasColumn(p[1]) {
			return core.NewColumnNotFoundError(p[0], p[1])
		}
	}
	return nil
}

// ArmFactor resolves the arm role to a factor column
func (r VariableRoles) ArmFactor(f *Frame) (*Factor, error) {
	if r.Arm == "" {
		return nil, core.NewColumnNotFoundError("arm", "")
	}
	return f.Factor(r.Arm)
}

// RequireTwoArmLevels enforces the two-level arm contract of the odds-ratio
// and proportion paths. Cox paths allow more than two levels or no arm.
func (r VariableRoles) RequireTwoArmLevels(f *Frame) (*Factor, error) {
	arm, err := r.ArmFactor(f)
	if err != nil {
		return nil, err
	}
	if arm.NumLevels() != 2 {
		return nil, core.NewArmLevelsError(r.Arm, 2, arm.NumLevels())
	}
	return arm, nil
}
