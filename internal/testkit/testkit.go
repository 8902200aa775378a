// Package testkit generates deterministic synthetic trial datasets for
// tests and demos. Column naming follows the usual subject-level analysis
// conventions (AVAL, EVENT, ARM, ...).
package testkit

import (
	"math"
	"math/rand"

	"clintab/domain/frame"
)

// TrialConfig shapes the synthetic dataset
type TrialConfig struct {
	N           int
	Seed        int64
	Arms        []string
	HazardRatio float64 // treated-arm hazard relative to control
	CensorRate  float64 // independent censoring hazard
	RespControl float64 // response probability on the control arm
	RespTreated float64 // response probability on treated arms
}

func (c *TrialConfig) defaults() {
	if c.N == 0 {
		c.N = 200
	}
	if len(c.Arms) == 0 {
		c.Arms = []string{"Placebo", "Drug X"}
	}
	if c.HazardRatio == 0 {
		c.HazardRatio = 0.7
	}
	if c.CensorRate == 0 {
		c.CensorRate = 0.3
	}
	if c.RespControl == 0 {
		c.RespControl = 0.3
	}
	if c.RespTreated == 0 {
		c.RespTreated = 0.5
	}
}

// NewTrialFrame builds a synthetic subject-level dataset: exponential
// survival times with independent censoring, a treated-vs-control hazard
// ratio, binary response, two subgroup factors, a stratification factor and
// two continuous biomarkers. The same config always yields the same frame.
func NewTrialFrame(cfg TrialConfig) *frame.Frame {
	cfg.defaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	n := cfg.N
	arm := make([]string, n)
	sex := make([]string, n)
	strata := make([]string, n)
	aval := make([]float64, n)
	event := make([]bool, n)
	rsp := make([]bool, n)
	bmrkr1 := make([]float64, n)
	bmrkr2 := make([]string, n)

	for i := 0; i < n; i++ {
		arm[i] = cfg.Arms[i%len(cfg.Arms)]
		if rng.Float64() < 0.5 {
			sex[i] = "F"
		} else {
			sex[i] = "M"
		}
		if rng.Float64() < 0.5 {
			strata[i] = "S1"
		} else {
			strata[i] = "S2"
		}

		hazard := 0.1
		pResp := cfg.RespControl
		if arm[i] != cfg.Arms[0] {
			hazard *= cfg.HazardRatio
			pResp = cfg.RespTreated
		}
		t := rng.ExpFloat64() / hazard
		c := rng.ExpFloat64() / (0.1 * cfg.CensorRate)
		aval[i] = math.Min(t, c)
		event[i] = t <= c
		rsp[i] = rng.Float64() < pResp

		bmrkr1[i] = 5 + 2*rng.NormFloat64()
		switch {
		case bmrkr1[i] < 4:
			bmrkr2[i] = "LOW"
		case bmrkr1[i] < 6:
			bmrkr2[i] = "MEDIUM"
		default:
			bmrkr2[i] = "HIGH"
		}
	}

	return frame.MustNew(
		frame.NumericColumn("AVAL", aval).WithLabel("Survival Time"),
		frame.BoolColumn("EVENT", event).WithLabel("Event Flag"),
		frame.FactorColumn("ARM", frame.MustFactor(arm, cfg.Arms)).WithLabel("Treatment Arm"),
		frame.FactorColumn("SEX", frame.MustFactor(sex, []string{"F", "M"})).WithLabel("Sex"),
		frame.FactorColumn("STRATA1", frame.MustFactor(strata, []string{"S1", "S2"})).WithLabel("Stratum"),
		frame.BoolColumn("RSP", rsp).WithLabel("Response Flag"),
		frame.NumericColumn("BMRKR1", bmrkr1).WithLabel("Continuous Biomarker"),
		frame.FactorColumn("BMRKR2", frame.MustFactor(bmrkr2, []string{"LOW", "MEDIUM", "HIGH"})).WithLabel("Categorical Biomarker"),
	)
}

// DefaultRoles maps the generated columns onto analysis roles
func DefaultRoles() frame.VariableRoles {
	return frame.VariableRoles{
		Time:       "AVAL",
		Event:      "EVENT",
		Arm:        "ARM",
		Response:   "RSP",
		Covariates: []string{"SEX", "BMRKR1"},
		Strata:     []string{"STRATA1"},
		Subgroups:  []string{"SEX", "BMRKR2"},
		Biomarkers: []string{"BMRKR1"},
	}
}
