package testkit

import (
	"testing"
)

func TestNewTrialFrameDeterministic(t *testing.T) {
	a := NewTrialFrame(TrialConfig{N: 50, Seed: 42})
	b := NewTrialFrame(TrialConfig{N: 50, Seed: 42})

	if a.NumRows() != 50 || b.NumRows() != 50 {
		t.Fatalf("NumRows = %d and %d, want 50", a.NumRows(), b.NumRows())
	}
	avalA, _ := a.Numeric("AVAL")
	avalB, _ := b.Numeric("AVAL")
	for i := range avalA {
		if avalA[i] != avalB[i] {
			t.Fatalf("row %d differs between equal seeds: %v vs %v", i, avalA[i], avalB[i])
		}
	}
}

func TestNewTrialFrameRolesResolve(t *testing.T) {
	f := NewTrialFrame(TrialConfig{N: 20, Seed: 1})
	roles := DefaultRoles()
	if err := roles.Validate(f); err != nil {
		t.Fatalf("default roles must resolve against the generated frame: %v", err)
	}

	arm, err := roles.RequireTwoArmLevels(f)
	if err != nil {
		t.Fatalf("RequireTwoArmLevels: %v", err)
	}
	levels := arm.Levels()
	if levels[0] != "Placebo" || levels[1] != "Drug X" {
		t.Errorf("arm levels = %v", levels)
	}

	counts := arm.Counts()
	if counts[0]+counts[1] != 20 {
		t.Errorf("arm counts = %v, want all subjects assigned", counts)
	}
}
