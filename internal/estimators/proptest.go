package estimators

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"clintab/domain/core"
	"clintab/domain/frame"
)

// TestMethod names a supported proportion-difference hypothesis test
type TestMethod string

const (
	MethodNone       TestMethod = "none"
	MethodChiSquared TestMethod = "chisq"
	MethodFisher     TestMethod = "fisher"
	MethodCMH        TestMethod = "cmh"
)

// TestResult is a two-sided p-value with its display label
type TestResult struct {
	PValue float64 `json:"pval"`
	Label  string  `json:"pval_label"`
}

// DifferenceTest compares response proportions between the two levels of
// arm. The strata factor is only consulted by the CMH method. Degenerate
// tables (empty arm, zero margins) yield a missing p-value rather than an
// error; unknown method names fail at entry.
func DifferenceTest(method TestMethod, rsp []bool, arm *frame.Factor, strata *frame.Factor) (TestResult, error) {
	switch method {
	case MethodNone:
		return TestResult{PValue: math.NaN()}, nil
	case MethodChiSquared:
		a, b, c, d := cells2x2(rsp, arm, nil)
		return TestResult{PValue: chiSquared2x2(a, b, c, d), Label: "Chi-Squared Test"}, nil
	case MethodFisher:
		a, b, c, d := cells2x2(rsp, arm, nil)
		return TestResult{PValue: fisherExact(a, b, c, d), Label: "Fisher's Exact Test"}, nil
	case MethodCMH:
		if strata == nil {
			return TestResult{}, core.NewIncompatibleModeError("CMH test requires a strata role")
		}
		return TestResult{PValue: cmhStratified(rsp, arm, strata), Label: "Cochran-Mantel-Haenszel Test"}, nil
	default:
		return TestResult{}, core.NewUnsupportedMethodError("test method", string(method))
	}
}

// cells2x2 builds the 2x2 response table for the first two arm levels,
// optionally restricted to the given rows.
func cells2x2(rsp []bool, arm *frame.Factor, rows []int) (a, b, c, d float64) {
	if rows == nil {
		rows = make([]int, arm.Len())
		for i := range rows {
			rows[i] = i
		}
	}
	for _, i := range rows {
		switch arm.Code(i) {
		case 0:
			if rsp[i] {
				a++
			} else {
				b++
			}
		case 1:
			if rsp[i] {
				c++
			} else {
				d++
			}
		}
	}
	return a, b, c, d
}

// chiSquared2x2 is the uncorrected Pearson chi-squared test on a 2x2 table
func chiSquared2x2(a, b, c, d float64) float64 {
	n := a + b + c + d
	r1, r2 := a+b, c+d
	c1, c2 := a+c, b+d
	if r1 == 0 || r2 == 0 || c1 == 0 || c2 == 0 {
		return math.NaN()
	}
	stat := n * (a*d - b*c) * (a*d - b*c) / (r1 * r2 * c1 * c2)
	return distuv.ChiSquared{K: 1}.Survival(stat)
}

// fisherExact is the two-sided Fisher exact test on a 2x2 table: the sum of
// hypergeometric probabilities of all tables at least as extreme as the
// observed one, with fixed margins.
func fisherExact(a, b, c, d float64) float64 {
	r1 := int(a + b)
	c1 := int(a + c)
	n := int(a + b + c + d)
	if r1 == 0 || c1 == 0 || r1 == n || c1 == n {
		return math.NaN()
	}
	lo := 0
	if r1+c1 > n {
		lo = r1 + c1 - n
	}
	hi := r1
	if c1 < hi {
		hi = c1
	}
	obs := hypergeomLogPMF(int(a), r1, c1, n)
	// Relative tolerance absorbs floating error in the log-space comparison.
	cutoff := obs + 1e-7
	p := 0.0
	for k := lo; k <= hi; k++ {
		if lp := hypergeomLogPMF(k, r1, c1, n); lp <= cutoff {
			p += math.Exp(lp)
		}
	}
	if p > 1 {
		p = 1
	}
	return p
}

// hypergeomLogPMF is log P(X = k) for X ~ Hypergeom(n, r1, c1)
func hypergeomLogPMF(k, r1, c1, n int) float64 {
	return logChoose(r1, k) + logChoose(n-r1, c1-k) - logChoose(n, c1)
}

func logChoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	ln, _ := math.Lgamma(float64(n + 1))
	lk, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return ln - lk - lnk
}

// cmhStratified is the Cochran-Mantel-Haenszel test across the strata
// levels, without continuity correction. Strata with a degenerate margin
// contribute nothing.
func cmhStratified(rsp []bool, arm *frame.Factor, strata *frame.Factor) float64 {
	var sumDiff, sumVar float64
	for _, level := range strata.Levels() {
		rows := strata.RowsWithLevel(level)
		a, b, c, d := cells2x2(rsp, arm, rows)
		n := a + b + c + d
		if n < 2 {
			continue
		}
		r1, r2 := a+b, c+d
		c1, c2 := a+c, b+d
		if r1 == 0 || r2 == 0 || c1 == 0 || c2 == 0 {
			continue
		}
		sumDiff += a - r1*c1/n
		sumVar += r1 * r2 * c1 * c2 / (n * n * (n - 1))
	}
	if sumVar == 0 {
		return math.NaN()
	}
	stat := sumDiff * sumDiff / sumVar
	return distuv.ChiSquared{K: 1}.Survival(stat)
}
