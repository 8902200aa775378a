// Package estimators contains the pure statistical estimation routines:
// proportions and their difference tests, odds ratios, Kaplan-Meier
// survival curves, the log-rank test, and Cox proportional-hazards fits.
// Estimators receive already-subsetted data and never fail on degenerate
// input; they return all-missing results so assembly stays structurally
// uniform.
package estimators

import (
	"math"

	"clintab/domain/frame"
)

// Denominator selects the denominator used when reporting proportions.
// The policy is always explicit, never inferred from the data shape.
type Denominator string

const (
	// DenomLocal divides by the size of the analyzed group (n).
	DenomLocal Denominator = "n"
	// DenomTotal divides by the size of the full analysis population (N).
	DenomTotal Denominator = "N"
	// DenomOmit reports counts only.
	DenomOmit Denominator = "omit"
)

// Proportion is the count summary of a logical response vector
type Proportion struct {
	N     int     `json:"n"`
	NResp int     `json:"n_rsp"`
	Prop  float64 `json:"prop"` // NaN when the denominator is zero or omitted
}

// ComputeProportion summarizes a logical vector. An empty vector yields a
// missing proportion, not a NaN propagated from a zero division by accident.
func ComputeProportion(rsp []bool) Proportion {
	return proportionWithDenom(rsp, len(rsp), DenomLocal)
}

func proportionWithDenom(rsp []bool, total int, denom Denominator) Proportion {
	p := Proportion{N: len(rsp), Prop: math.NaN()}
	for _, r := range rsp {
		if r {
			p.NResp++
		}
	}
	switch denom {
	case DenomLocal:
		if p.N > 0 {
			p.Prop = float64(p.NResp) / float64(p.N)
		}
	case DenomTotal:
		if total > 0 {
			p.Prop = float64(p.NResp) / float64(total)
		}
	case DenomOmit:
		// counts only
	}
	return p
}

// ArmProportion is a per-arm proportion summary
type ArmProportion struct {
	Arm string
	Proportion
}

// ProportionByArm computes one proportion per arm level, in the arm
// factor's level order. Levels without observations yield N = 0 and a
// missing proportion.
func ProportionByArm(rsp []bool, arm *frame.Factor, denom Denominator) []ArmProportion {
	total := arm.Len()
	out := make([]ArmProportion, 0, arm.NumLevels())
	for _, level := range arm.Levels() {
		rows := arm.RowsWithLevel(level)
		group := make([]bool, len(rows))
		for i, r := range rows {
			group[i] = rsp[r]
		}
		out = append(out, ArmProportion{
			Arm:        level,
			Proportion: proportionWithDenom(group, total, denom),
		})
	}
	return out
}
