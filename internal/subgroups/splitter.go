// Package subgroups partitions an analysis dataset by subgroup-defining
// factor variables, optionally merging raw levels into named combined
// groups, and carries the label metadata each partition needs downstream.
package subgroups

import (
	"fmt"

	"clintab/domain/core"
	"clintab/domain/frame"
)

// Combination merges raw factor levels into one named combined level, e.g.
// pooling two histology grades. Combinations need not be disjoint; each is
// treated independently downstream.
type Combination struct {
	Name   string   `json:"name"`
	Levels []string `json:"levels"`
}

// Combinations maps a subgroup variable to its declared combined levels, in
// declaration order.
type Combinations map[string][]Combination

// Partition is one subgroup slice of the dataset. Data keeps the full
// factor level sets of the parent frame, so an empty subgroup still knows
// its arm levels.
type Partition struct {
	Var      string       `json:"var"`
	VarLabel string       `json:"var_label"`
	Subgroup string       `json:"subgroup"`
	Rows     []int        `json:"-"`
	Data     *frame.Frame `json:"-"`
}

// Split partitions the dataset by each subgroup variable in caller order.
// Plain variables contribute one partition per factor level in level order;
// variables with declared combinations contribute one partition per
// combination in declaration order. A level with no matching rows still
// yields a partition with an empty row set.
func Split(f *frame.Frame, vars []string, combos Combinations) ([]Partition, error) {
	var out []Partition
	for _, name := range vars {
		fac, err := f.Factor(name)
		if err != nil {
			return nil, fmt.Errorf("%w: subgroup variable: %v", core.ErrInvalidConfiguration, err)
		}
		label := f.Label(name)
		if declared, ok := combos[name]; ok {
			for _, combo := range declared {
				for _, lv := range combo.Levels {
					if fac.LevelIndex(lv) < 0 {
						return nil, fmt.Errorf("%w: combination %q references unknown level %q of %q",
							core.ErrInvalidConfiguration, combo.Name, lv, name)
					}
				}
				rows := fac.RowsWithAnyLevel(combo.Levels)
				out = append(out, Partition{
					Var:      name,
					VarLabel: label,
					Subgroup: combo.Name,
					Rows:     rows,
					Data:     f.Subset(rows),
				})
			}
			continue
		}
		for _, level := range fac.Levels() {
			rows := fac.RowsWithLevel(level)
			out = append(out, Partition{
				Var:      name,
				VarLabel: label,
				Subgroup: level,
				Rows:     rows,
				Data:     f.Subset(rows),
			})
		}
	}
	return out, nil
}
