package tabulate

import (
	"clintab/domain/result"
)

// block regroups one subgroup's long-format rows: the content row, the
// per-arm analysis rows, and the effect (hazard-ratio / odds-ratio) row.
type block struct {
	content   result.Row
	arms      []result.Row
	effect    result.Row
	hasEffect bool
}

// extractBlocks walks the assembled table in order. Every content row opens
// a block; analysis rows attach to the open block, split on whether they
// carry an arm.
func extractBlocks(t *result.Table) []block {
	var blocks []block
	for _, row := range t.Rows {
		if row.RowType == result.RowContent {
			blocks = append(blocks, block{content: row})
			continue
		}
		if len(blocks) == 0 {
			continue
		}
		b := &blocks[len(blocks)-1]
		if row.Arm != "" {
			b.arms = append(b.arms, row)
		} else {
			b.effect = row
			b.hasEffect = true
		}
	}
	return blocks
}

// armRow selects the per-arm row of a block for one arm level
func (b *block) armRow(level string) (result.Row, bool) {
	for _, r := range b.arms {
		if r.Arm == level {
			return r, true
		}
	}
	return result.Row{}, false
}
