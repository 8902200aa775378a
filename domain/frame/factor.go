package frame

import (
	"fmt"
)

// Factor is a categorical vector with an explicit, ordered level set.
// Level order is part of the value: it drives column order in tabulated
// output and must survive subsetting and row-binding.
type Factor struct {
	levels []string
	codes  []int // index into levels, -1 for missing
}

// NewFactor builds a factor from string values. When levels is nil the level
// set is the distinct values in order of first appearance.
func NewFactor(values []string, levels []string) (*Factor, error) {
	if levels == nil {
		seen := make(map[string]bool, len(values))
		for _, v := range values {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			levels = append(levels, v)
		}
	}
	index := make(map[string]int, len(levels))
	for i, lv := range levels {
		if lv == "" {
			return nil, fmt.Errorf("factor level must not be empty")
		}
		if _, dup := index[lv]; dup {
			return nil, fmt.Errorf("duplicate factor level %q", lv)
		}
		index[lv] = i
	}
	codes := make([]int, len(values))
	for i, v := range values {
		if v == "" {
			codes[i] = -1
			continue
		}
		code, ok := index[v]
		if !ok {
			return nil, fmt.Errorf("value %q not in declared levels %v", v, levels)
		}
		codes[i] = code
	}
	return &Factor{levels: levels, codes: codes}, nil
}

// MustFactor builds a factor and panics on invalid input. Test helper.
func MustFactor(values []string, levels []string) *Factor {
	f, err := NewFactor(values, levels)
	if err != nil {
		panic(err)
	}
	return f
}

// Len returns the number of observations
func (f *Factor) Len() int {
	return len(f.codes)
}

// Levels returns a copy of the ordered level set
func (f *Factor) Levels() []string {
	out := make([]string, len(f.levels))
	copy(out, f.levels)
	return out
}

// NumLevels returns the number of declared levels
func (f *Factor) NumLevels() int {
	return len(f.levels)
}

// Code returns the level code at observation i (-1 for missing)
func (f *Factor) Code(i int) int {
	return f.codes[i]
}

// Value returns the level string at observation i, or "" when missing
func (f *Factor) Value(i int) string {
	c := f.codes[i]
	if c < 0 {
		return ""
	}
	return f.levels[c]
}

// LevelIndex returns the code of a level, or -1 when the level is not declared
func (f *Factor) LevelIndex(level string) int {
	for i, lv := range f.levels {
		if lv == level {
			return i
		}
	}
	return -1
}

// Counts returns observation counts per level, in level order
func (f *Factor) Counts() []int {
	counts := make([]int, len(f.levels))
	for _, c := range f.codes {
		if c >= 0 {
			counts[c]++
		}
	}
	return counts
}

// Subset returns a factor over the given row indices. The full level set is
// retained even when a level has no remaining observations.
func (f *Factor) Subset(rows []int) *Factor {
	codes := make([]int, len(rows))
	for i, r := range rows {
		codes[i] = f.codes[r]
	}
	return &Factor{levels: f.levels, codes: codes}
}

// RowsWithLevel returns the row indices carrying the given level
func (f *Factor) RowsWithLevel(level string) []int {
	code := f.LevelIndex(level)
	if code < 0 {
		return nil
	}
	var rows []int
	for i, c := range f.codes {
		if c == code {
			rows = append(rows, i)
		}
	}
	return rows
}

// RowsWithAnyLevel returns the row indices carrying any of the given levels,
// in original row order. Used for combined subgroup levels.
func (f *Factor) RowsWithAnyLevel(levels []string) []int {
	want := make(map[int]bool, len(levels))
	for _, lv := range levels {
		if code := f.LevelIndex(lv); code >= 0 {
			want[code] = true
		}
	}
	var rows []int
	for i, c := range f.codes {
		if c >= 0 && want[c] {
			rows = append(rows, i)
		}
	}
	return rows
}
