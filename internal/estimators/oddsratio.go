package estimators

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"clintab/domain/frame"
)

// ORCI is an odds-ratio estimate with its Wald confidence interval. The
// ratio compares the second arm level against the first (treatment vs
// control under the usual level ordering).
type ORCI struct {
	OR        float64 `json:"or"`
	LCL       float64 `json:"lcl"`
	UCL       float64 `json:"ucl"`
	ConfLevel float64 `json:"conf_level"`
}

// missingORCI keeps the conf level so display stays uniform
func missingORCI(confLevel float64) ORCI {
	nan := math.NaN()
	return ORCI{OR: nan, LCL: nan, UCL: nan, ConfLevel: confLevel}
}

// OddsRatio estimates the odds ratio between the two arm levels with a
// Wald-type interval on the log-odds scale. A zero cell triggers the
// Haldane-Anscombe correction (0.5 added to every cell); a zero margin
// (no responders anywhere, or an empty arm) yields a missing estimate.
func OddsRatio(rsp []bool, arm *frame.Factor, confLevel float64) ORCI {
	a, b, c, d := cells2x2(rsp, arm, nil)
	if a+b == 0 || c+d == 0 || a+c == 0 || b+d == 0 {
		return missingORCI(confLevel)
	}
	if a == 0 || b == 0 || c == 0 || d == 0 {
		a += 0.5
		b += 0.5
		c += 0.5
		d += 0.5
	}
	logOR := math.Log(c*b) - math.Log(d*a)
	se := math.Sqrt(1/a + 1/b + 1/c + 1/d)
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.5 + confLevel/2)
	return ORCI{
		OR:        math.Exp(logOR),
		LCL:       math.Exp(logOR - z*se),
		UCL:       math.Exp(logOR + z*se),
		ConfLevel: confLevel,
	}
}
