// Package coerce converts raw string datasets into typed analysis columns.
// Both file readers and the database repository funnel through it.
package coerce

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"clintab/domain/frame"
)

// missing strings treated as absent values in any column kind
var missingStrings = map[string]bool{
	"":   true,
	"NA": true,
	".":  true,
}

// IsMissing reports whether a raw cell counts as a missing value
func IsMissing(raw string) bool {
	return missingStrings[strings.TrimSpace(raw)]
}

// Infer guesses the column kind from raw string values: bool when every
// present value is a recognized flag, numeric when every present value
// parses, factor otherwise. All-missing columns default to string.
func Infer(values []string) frame.Kind {
	present := 0
	allBool := true
	allNum := true
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		present++
		if _, ok := parseFlag(v); !ok {
			allBool = false
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
			allNum = false
		}
	}
	switch {
	case present == 0:
		return frame.KindString
	case allBool:
		return frame.KindBool
	case allNum:
		return frame.KindNumeric
	default:
		return frame.KindFactor
	}
}

// Column converts raw strings into a typed column of the given kind.
// Missing numeric values become NaN; missing factor values become missing
// codes. Bool columns reject missing values since event and response flags
// must be complete.
func Column(name, label string, kind frame.Kind, values []string) (*frame.Column, error) {
	switch kind {
	case frame.KindNumeric:
		nums := make([]float64, len(values))
		for i, v := range values {
			if IsMissing(v) {
				nums[i] = math.NaN()
				continue
			}
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %q is not numeric", name, i+1, v)
			}
			nums[i] = parsed
		}
		return frame.NumericColumn(name, nums).WithLabel(label), nil

	case frame.KindBool:
		flags := make([]bool, len(values))
		for i, v := range values {
			if IsMissing(v) {
				return nil, fmt.Errorf("column %q row %d: flag value missing", name, i+1)
			}
			parsed, ok := parseFlag(v)
			if !ok {
				return nil, fmt.Errorf("column %q row %d: %q is not a flag value", name, i+1, v)
			}
			flags[i] = parsed
		}
		return frame.BoolColumn(name, flags).WithLabel(label), nil

	case frame.KindFactor:
		cleaned := make([]string, len(values))
		for i, v := range values {
			if !IsMissing(v) {
				cleaned[i] = strings.TrimSpace(v)
			}
		}
		fac, err := frame.NewFactor(cleaned, nil)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		return frame.FactorColumn(name, fac).WithLabel(label), nil

	case frame.KindString:
		out := make([]string, len(values))
		copy(out, values)
		return frame.StringColumn(name, out).WithLabel(label), nil
	}
	return nil, fmt.Errorf("column %q: unknown kind %q", name, kind)
}

// parseFlag recognizes the usual event/response flag spellings
func parseFlag(raw string) (bool, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "Y", "YES", "TRUE", "T", "1":
		return true, true
	case "N", "NO", "FALSE", "F", "0":
		return false, true
	}
	return false, false
}
