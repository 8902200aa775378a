package tabulate

import (
	"fmt"

	"clintab/ports"
)

// perArmStats lists the statistic names that fan out into one column per
// arm level when planned.
var perArmStats = map[string]bool{
	StatN:       true,
	StatNEvents: true,
	StatMedian:  true,
	StatNResp:   true,
	StatProp:    true,
}

// column is one planned output column: the statistic it shows and, for
// per-arm statistics, the arm level it belongs to.
type column struct {
	stat   string
	arm    string
	header string
}

type columnPlan struct {
	cols []column
}

// planColumns expands the requested statistics into concrete columns in
// request order, fanning per-arm statistics out over the arm levels.
func planColumns(stats []string, armLevels []string, headers map[string]string) columnPlan {
	var plan columnPlan
	for _, s := range stats {
		if perArmStats[s] {
			for _, level := range armLevels {
				plan.cols = append(plan.cols, column{
					stat:   s,
					arm:    level,
					header: fmt.Sprintf("%s: %s", level, headers[s]),
				})
			}
			continue
		}
		plan.cols = append(plan.cols, column{stat: s, header: headers[s]})
	}
	return plan
}

func (p columnPlan) headers() []string {
	out := make([]string, len(p.cols))
	for i, c := range p.cols {
		out[i] = c.header
	}
	return out
}

// indexOf returns the position of the first column showing stat
func (p columnPlan) indexOf(stat string) (int, bool) {
	for i, c := range p.cols {
		if c.stat == stat {
			return i, true
		}
	}
	return 0, false
}

// planRows lays the blocks out as display rows: the full-population block
// first, then a header row each time the subgroup variable changes followed
// by one row per level. Header rows carry no cells.
func planRows(blocks []block) ([]ports.RowSpec, []*block) {
	var specs []ports.RowSpec
	var cells []*block
	prevVar := ""
	for i := range blocks {
		b := &blocks[i]
		if i == 0 {
			specs = append(specs, ports.RowSpec{Group: b.content.VarLabel})
			cells = append(cells, b)
			prevVar = b.content.Var
			continue
		}
		if b.content.Var != prevVar {
			specs = append(specs, ports.RowSpec{Group: b.content.VarLabel})
			cells = append(cells, nil)
			prevVar = b.content.Var
		}
		specs = append(specs, ports.RowSpec{Group: b.content.VarLabel, Label: b.content.Subgroup})
		cells = append(cells, b)
	}
	return specs, cells
}

// annotateForest attaches the forest-plot annotations: the estimate and
// interval column positions, the symbol-size column (first of the given
// candidates that was requested), and the better-direction headers. The
// estimate compares the last arm level against the first, so values below
// one favor the last level.
func annotateForest(b ports.TableBuilder, p columnPlan, armLevels []string, xStat string, symbolStats ...string) {
	if i, ok := p.indexOf(xStat); ok {
		b.Annotate(ports.AnnotColX, i)
	}
	if i, ok := p.indexOf(StatCI); ok {
		b.Annotate(ports.AnnotColCI, i)
	}
	for _, s := range symbolStats {
		if i, ok := p.indexOf(s); ok {
			b.Annotate(ports.AnnotColSymbolSize, i)
			break
		}
	}
	if len(armLevels) >= 2 {
		treatment := armLevels[len(armLevels)-1]
		control := armLevels[0]
		b.Annotate(ports.AnnotForestHeader, []string{
			treatment + " Better",
			control + " Better",
		})
	}
}
