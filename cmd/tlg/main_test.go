package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestSurvivalCommandDemo(t *testing.T) {
	cmd := newSurvivalCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--demo", "--subgroups", "SEX", "--time-unit", "months"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("survival --demo: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Hazard Ratio") {
		t.Errorf("output missing the hazard-ratio column:\n%s", text)
	}
	if !strings.Contains(text, "Median follow-up:") {
		t.Errorf("output missing the follow-up footer:\n%s", text)
	}
	if !strings.Contains(text, "months") {
		t.Errorf("output missing the time unit:\n%s", text)
	}
}
