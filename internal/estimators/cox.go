package estimators

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"clintab/domain/core"
	"clintab/domain/frame"
)

// TiesMethod selects the tied-event-time handling of the partial likelihood
type TiesMethod string

const (
	TiesEfron   TiesMethod = "efron"
	TiesBreslow TiesMethod = "breslow"
	TiesExact   TiesMethod = "exact"
)

// ParseTiesMethod validates a ties method name at call entry
func ParseTiesMethod(s string) (TiesMethod, error) {
	switch TiesMethod(s) {
	case TiesEfron, TiesBreslow, TiesExact:
		return TiesMethod(s), nil
	default:
		return "", core.NewUnsupportedMethodError("ties method", s)
	}
}

// CoxSpec describes one proportional-hazards model fit
type CoxSpec struct {
	Time        string
	Event       string
	Arm         string // optional; covariate-only models are allowed
	Covariates  []string
	Strata      []string
	Ties        TiesMethod
	ConfLevel   float64
	Interaction bool
}

// CoxTerm is the per-term estimate of a fitted model
type CoxTerm struct {
	Term
	Coef   float64 `json:"coef"`
	SE     float64 `json:"se"`
	HR     float64 `json:"hr"`
	LCL    float64 `json:"lcl"`
	UCL    float64 `json:"ucl"`
	PValue float64 `json:"pval"`
}

// CoxFit is a tidied proportional-hazards fit. Degenerate inputs (no
// events, all-constant design) produce a fit with a Degenerate reason and
// all-missing terms instead of an error.
type CoxFit struct {
	Terms        []CoxTerm          `json:"terms"`
	Cov          [][]float64        `json:"-"` // term-aligned covariance, NaN for unestimated terms
	N            int                `json:"n"`
	NEvents      int                `json:"n_events"`
	LogLik       float64            `json:"loglik"`
	InteractionP map[string]float64 `json:"interaction_pval,omitempty"` // per covariate
	ConfLevel    float64            `json:"conf_level"`
	Degenerate   string             `json:"degenerate,omitempty"`
	Notes        []string           `json:"notes,omitempty"`
}

// TermIndex locates a term by variable, level and interaction flag, -1 when absent
func (f *CoxFit) TermIndex(varName, level string, interaction bool) int {
	for i, t := range f.Terms {
		if t.Var == varName && t.Level == level && t.Interaction == interaction {
			return i
		}
	}
	return -1
}

// CombinedEffect estimates exp(coef_i + coef_j) with a Wald interval, used
// for the treatment effect within a covariate level of an interaction model.
func (f *CoxFit) CombinedEffect(i, j int) (hr, lcl, ucl float64) {
	nan := math.NaN()
	if i < 0 || j < 0 {
		return nan, nan, nan
	}
	coef := f.Terms[i].Coef + f.Terms[j].Coef
	variance := f.Cov[i][i] + f.Cov[j][j] + 2*f.Cov[i][j]
	if math.IsNaN(coef) || math.IsNaN(variance) || variance < 0 {
		return nan, nan, nan
	}
	se := math.Sqrt(variance)
	z := distuv.UnitNormal.Quantile(0.5 + f.ConfLevel/2)
	return math.Exp(coef), math.Exp(coef - z*se), math.Exp(coef + z*se)
}

// degenerateCoxFit builds an all-missing fit with one row per design term
func degenerateCoxFit(terms []Term, n, nEvents int, confLevel float64, reason string) *CoxFit {
	fit := &CoxFit{
		N:          n,
		NEvents:    nEvents,
		LogLik:     math.NaN(),
		ConfLevel:  confLevel,
		Degenerate: reason,
	}
	nan := math.NaN()
	for _, t := range terms {
		fit.Terms = append(fit.Terms, CoxTerm{Term: t, Coef: nan, SE: nan, HR: nan, LCL: nan, UCL: nan, PValue: nan})
	}
	fit.Cov = nanMatrix(len(terms))
	return fit
}

func nanMatrix(p int) [][]float64 {
	out := make([][]float64, p)
	for i := range out {
		out[i] = make([]float64, p)
		for j := range out[i] {
			out[i][j] = math.NaN()
		}
	}
	return out
}

// FitCox fits a proportional-hazards model by Newton-Raphson maximization
// of the stratified partial likelihood. Configuration problems (unknown
// ties method, interaction without an arm) error at entry; degenerate data
// comes back as an all-missing fit.
func FitCox(f *frame.Frame, spec CoxSpec) (*CoxFit, error) {
	if _, err := ParseTiesMethod(string(spec.Ties)); err != nil {
		return nil, err
	}
	if spec.Interaction && spec.Arm == "" {
		return nil, core.NewIncompatibleModeError("interaction effects require an arm role")
	}
	if spec.ConfLevel <= 0 || spec.ConfLevel >= 1 {
		return nil, fmt.Errorf("%w: conf level %v outside (0, 1)", core.ErrInvalidConfiguration, spec.ConfLevel)
	}

	timeCol, err := f.Numeric(spec.Time)
	if err != nil {
		return nil, fmt.Errorf("%w: time: %v", core.ErrInvalidConfiguration, err)
	}
	eventCol, err := f.Bool(spec.Event)
	if err != nil {
		return nil, fmt.Errorf("%w: event: %v", core.ErrInvalidConfiguration, err)
	}

	dsg, err := buildDesign(f, spec.Arm, spec.Covariates, spec.Interaction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidConfiguration, err)
	}

	strataKeys, err := strataKeys(f, spec.Strata)
	if err != nil {
		return nil, fmt.Errorf("%w: strata: %v", core.ErrInvalidConfiguration, err)
	}

	// Complete-case filter: a row with a missing time or design value
	// cannot enter the risk sets.
	rows := completeRows(timeCol, dsg)
	n := len(rows)
	nEvents := 0
	for _, r := range rows {
		if eventCol[r] {
			nEvents++
		}
	}

	if len(dsg.terms) == 0 {
		return degenerateCoxFit(nil, n, nEvents, spec.ConfLevel, "no estimable model terms"), nil
	}
	if n == 0 {
		return degenerateCoxFit(dsg.terms, 0, 0, spec.ConfLevel, "empty analysis set"), nil
	}
	if nEvents == 0 {
		return degenerateCoxFit(dsg.terms, n, 0, spec.ConfLevel, "no events"), nil
	}

	dsg.centerOn(rows)
	constant := dsg.constantColumnsOn(rows)
	var kept []int
	for j := range dsg.cols {
		if !constant[j] {
			kept = append(kept, j)
		}
	}
	fit := &CoxFit{N: n, NEvents: nEvents, ConfLevel: spec.ConfLevel}
	if len(kept) == 0 {
		return degenerateCoxFit(dsg.terms, n, nEvents, spec.ConfLevel, "all model terms constant"), nil
	}
	if len(kept) < len(dsg.cols) {
		fit.Notes = append(fit.Notes, "zero-variance model terms excluded from estimation")
	}

	ties := spec.Ties
	if ties == TiesExact {
		// Without tied event times the exact partial likelihood coincides
		// with Breslow's; with ties we approximate by Efron's, which is the
		// closer of the two.
		if hasTiedEvents(timeCol, eventCol, rows) {
			ties = TiesEfron
			fit.Notes = append(fit.Notes, "exact ties method approximated by efron for tied event times")
		} else {
			ties = TiesBreslow
		}
	}

	cd := newCoxData(timeCol, eventCol, dsg, kept, strataKeys, rows)
	beta, cov, logLik, fitErr := cd.newtonRaphson(ties == TiesEfron)
	if fitErr != "" {
		return degenerateCoxFit(dsg.terms, n, nEvents, spec.ConfLevel, fitErr), nil
	}
	fit.LogLik = logLik

	// Map estimates back onto the full term list; dropped terms stay missing.
	z := distuv.UnitNormal.Quantile(0.5 + spec.ConfLevel/2)
	nan := math.NaN()
	keptPos := make(map[int]int, len(kept)) // design column -> position in beta
	for pos, j := range kept {
		keptPos[j] = pos
	}
	fit.Cov = nanMatrix(len(dsg.terms))
	for j, term := range dsg.terms {
		ct := CoxTerm{Term: term, Coef: nan, SE: nan, HR: nan, LCL: nan, UCL: nan, PValue: nan}
		if pos, ok := keptPos[j]; ok {
			coef := beta[pos]
			se := math.Sqrt(cov.At(pos, pos))
			ct.Coef = coef
			ct.SE = se
			ct.HR = math.Exp(coef)
			ct.LCL = math.Exp(coef - z*se)
			ct.UCL = math.Exp(coef + z*se)
			ct.PValue = 2 * distuv.UnitNormal.Survival(math.Abs(coef/se))
		}
		fit.Terms = append(fit.Terms, ct)
	}
	for j1, p1 := range keptPos {
		for j2, p2 := range keptPos {
			fit.Cov[j1][j2] = cov.At(p1, p2)
		}
	}

	if spec.Interaction {
		fit.InteractionP = interactionPValues(dsg.terms, keptPos, beta, cov)
	}
	return fit, nil
}

// strataKeys collapses the strata factors into one stratum label per row
func strataKeys(f *frame.Frame, strata []string) ([]string, error) {
	keys := make([]string, f.NumRows())
	for _, name := range strata {
		fac, err := f.Factor(name)
		if err != nil {
			return nil, err
		}
		for i := range keys {
			keys[i] += "\x1f" + fac.Value(i)
		}
	}
	return keys, nil
}

func completeRows(time []float64, d *design) []int {
	var rows []int
	for i := range time {
		if math.IsNaN(time[i]) {
			continue
		}
		ok := true
		for _, col := range d.cols {
			if math.IsNaN(col[i]) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, i)
		}
	}
	return rows
}

// constantColumnsOn flags columns that are constant over the analysis rows
func (d *design) constantColumnsOn(rows []int) []bool {
	out := make([]bool, len(d.cols))
	for j, col := range d.cols {
		constant := true
		for _, r := range rows[1:] {
			if col[r] != col[rows[0]] {
				constant = false
				break
			}
		}
		out[j] = constant
	}
	return out
}

func hasTiedEvents(time []float64, event []bool, rows []int) bool {
	seen := make(map[float64]bool)
	for _, r := range rows {
		if !event[r] {
			continue
		}
		if seen[time[r]] {
			return true
		}
		seen[time[r]] = true
	}
	return false
}

// coxData holds the observation layout used by the likelihood evaluations
type coxData struct {
	time   []float64
	event  []bool
	x      [][]float64 // kept design columns
	strata [][]int     // row indices per stratum, descending time
	p      int
}

func newCoxData(time []float64, event []bool, d *design, kept []int, strataKey []string, rows []int) *coxData {
	cd := &coxData{time: time, event: event, p: len(kept)}
	for _, j := range kept {
		cd.x = append(cd.x, d.cols[j])
	}
	byStratum := make(map[string][]int)
	var order []string
	for _, r := range rows {
		key := strataKey[r]
		if _, ok := byStratum[key]; !ok {
			order = append(order, key)
		}
		byStratum[key] = append(byStratum[key], r)
	}
	for _, key := range order {
		idx := byStratum[key]
		sort.Slice(idx, func(a, b int) bool { return time[idx[a]] > time[idx[b]] })
		cd.strata = append(cd.strata, idx)
	}
	return cd
}

// derivs evaluates the log partial likelihood, score vector, and observed
// information at beta, with Efron or Breslow handling of tied event times.
func (c *coxData) derivs(beta []float64, efron bool) (float64, []float64, *mat.SymDense) {
	p := c.p
	ll := 0.0
	grad := make([]float64, p)
	info := mat.NewSymDense(p, nil)

	xrow := func(r int, j int) float64 { return c.x[j][r] }
	eta := func(r int) float64 {
		e := 0.0
		for j := 0; j < p; j++ {
			e += beta[j] * xrow(r, j)
		}
		return e
	}

	s1 := make([]float64, p)
	s2 := make([]float64, p*p)
	s1d := make([]float64, p)
	s2d := make([]float64, p*p)

	for _, idx := range c.strata {
		s0 := 0.0
		for j := range s1 {
			s1[j] = 0
		}
		for j := range s2 {
			s2[j] = 0
		}
		i := 0
		for i < len(idx) {
			t := c.time[idx[i]]
			d := 0
			s0d := 0.0
			sumEta := 0.0
			for j := range s1d {
				s1d[j] = 0
			}
			for j := range s2d {
				s2d[j] = 0
			}
			sumXD := make([]float64, p)
			// Everyone observed at time t enters the risk set here because
			// we sweep times in descending order.
			for i < len(idx) && c.time[idx[i]] == t {
				r := idx[i]
				w := math.Exp(eta(r))
				s0 += w
				for a := 0; a < p; a++ {
					xa := xrow(r, a)
					s1[a] += w * xa
					for b := a; b < p; b++ {
						s2[a*p+b] += w * xa * xrow(r, b)
					}
				}
				if c.event[r] {
					d++
					sumEta += eta(r)
					s0d += w
					for a := 0; a < p; a++ {
						xa := xrow(r, a)
						sumXD[a] += xa
						s1d[a] += w * xa
						for b := a; b < p; b++ {
							s2d[a*p+b] += w * xa * xrow(r, b)
						}
					}
				}
				i++
			}
			if d == 0 {
				continue
			}
			ll += sumEta
			for a := 0; a < p; a++ {
				grad[a] += sumXD[a]
			}
			steps := 1
			if efron {
				steps = d
			}
			for l := 0; l < steps; l++ {
				phi := 0.0
				if efron {
					phi = float64(l) / float64(d)
				}
				s0l := s0 - phi*s0d
				weight := float64(d)
				if efron {
					weight = 1
				}
				ll -= weight * math.Log(s0l)
				for a := 0; a < p; a++ {
					s1a := (s1[a] - phi*s1d[a]) / s0l
					grad[a] -= weight * s1a
					for b := a; b < p; b++ {
						s1b := (s1[b] - phi*s1d[b]) / s0l
						s2ab := (s2[a*p+b] - phi*s2d[a*p+b]) / s0l
						info.SetSym(a, b, info.At(a, b)+weight*(s2ab-s1a*s1b))
					}
				}
			}
		}
	}
	return ll, grad, info
}

const (
	coxMaxIter = 30
	coxTol     = 1e-9
)

// newtonRaphson maximizes the partial likelihood. Returns the coefficient
// vector, its covariance (inverse information), and the final log
// likelihood; a non-empty reason string reports estimation failure.
func (c *coxData) newtonRaphson(efron bool) ([]float64, *mat.SymDense, float64, string) {
	p := c.p
	beta := make([]float64, p)
	ll, grad, info := c.derivs(beta, efron)
	var chol mat.Cholesky
	for iter := 0; iter < coxMaxIter; iter++ {
		if !chol.Factorize(info) {
			return nil, nil, 0, "information matrix not positive definite"
		}
		step := mat.NewVecDense(p, nil)
		if err := chol.SolveVecTo(step, mat.NewVecDense(p, grad)); err != nil {
			return nil, nil, 0, "singular information matrix"
		}
		candidate := make([]float64, p)
		for j := 0; j < p; j++ {
			candidate[j] = beta[j] + step.AtVec(j)
		}
		newLL, newGrad, newInfo := c.derivs(candidate, efron)
		// Step-halving keeps the ascent monotone on badly scaled data.
		for half := 0; newLL < ll && half < 5; half++ {
			for j := 0; j < p; j++ {
				candidate[j] = beta[j] + (candidate[j]-beta[j])/2
			}
			newLL, newGrad, newInfo = c.derivs(candidate, efron)
		}
		maxStep := 0.0
		for j := 0; j < p; j++ {
			if s := math.Abs(candidate[j] - beta[j]); s > maxStep {
				maxStep = s
			}
		}
		beta, grad, info = candidate, newGrad, newInfo
		converged := math.Abs(newLL-ll) < coxTol*(math.Abs(ll)+coxTol) && maxStep < 1e-6
		ll = newLL
		if converged {
			break
		}
	}
	if !chol.Factorize(info) {
		return nil, nil, 0, "information matrix not positive definite"
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, nil, 0, "singular information matrix"
	}
	return beta, &cov, ll, ""
}

// interactionPValues performs a Wald block test per covariate over its
// arm x covariate interaction terms.
func interactionPValues(terms []Term, keptPos map[int]int, beta []float64, cov *mat.SymDense) map[string]float64 {
	blocks := make(map[string][]int) // covariate -> beta positions
	dropped := make(map[string]bool)
	for j, t := range terms {
		if !t.Interaction {
			continue
		}
		pos, ok := keptPos[j]
		if !ok {
			dropped[t.Var] = true
			continue
		}
		blocks[t.Var] = append(blocks[t.Var], pos)
	}
	out := make(map[string]float64, len(blocks))
	for covName, pos := range blocks {
		if dropped[covName] {
			out[covName] = math.NaN()
			continue
		}
		k := len(pos)
		b := mat.NewVecDense(k, nil)
		v := mat.NewSymDense(k, nil)
		for a := 0; a < k; a++ {
			b.SetVec(a, beta[pos[a]])
			for c := a; c < k; c++ {
				v.SetSym(a, c, cov.At(pos[a], pos[c]))
			}
		}
		var chol mat.Cholesky
		if !chol.Factorize(v) {
			out[covName] = math.NaN()
			continue
		}
		sol := mat.NewVecDense(k, nil)
		if err := chol.SolveVecTo(sol, b); err != nil {
			out[covName] = math.NaN()
			continue
		}
		stat := mat.Dot(b, sol)
		out[covName] = distuv.ChiSquared{K: float64(k)}.Survival(stat)
	}
	for covName := range dropped {
		if _, ok := out[covName]; !ok {
			out[covName] = math.NaN()
		}
	}
	return out
}
