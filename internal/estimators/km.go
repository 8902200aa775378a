package estimators

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"clintab/domain/frame"
)

// KMPoint is the product-limit estimate at one distinct event time
type KMPoint struct {
	Time    float64 `json:"time"`
	NRisk   int     `json:"n_risk"`
	NEvent  int     `json:"n_event"`
	Surv    float64 `json:"surv"`
	greenwd float64 // cumulative Greenwood variance term
}

// KMCurve is a Kaplan-Meier survival curve
type KMCurve struct {
	Points  []KMPoint `json:"points"`
	N       int       `json:"n"`
	NEvents int       `json:"n_events"`
}

// KaplanMeier computes the product-limit estimator. Censored subjects leave
// the risk set after their censoring time. Subjects with a missing time are
// excluded (complete-case, matching the regression fits); N counts the
// analyzed subjects. An empty input yields an empty curve with N = 0.
func KaplanMeier(time []float64, event []bool) KMCurve {
	var idx []int
	for i := range time {
		if !math.IsNaN(time[i]) {
			idx = append(idx, i)
		}
	}
	curve := KMCurve{N: len(idx)}
	if len(idx) == 0 {
		return curve
	}
	sort.Slice(idx, func(a, b int) bool { return time[idx[a]] < time[idx[b]] })

	surv := 1.0
	greenwd := 0.0
	atRisk := len(idx)
	for i := 0; i < len(idx); {
		t := time[idx[i]]
		events, censored := 0, 0
		for i < len(idx) && time[idx[i]] == t {
			if event[idx[i]] {
				events++
			} else {
				censored++
			}
			i++
		}
		if events > 0 {
			d, n := float64(events), float64(atRisk)
			surv *= 1 - d/n
			if n > d {
				greenwd += d / (n * (n - d))
			}
			curve.Points = append(curve.Points, KMPoint{
				Time:    t,
				NRisk:   atRisk,
				NEvent:  events,
				Surv:    surv,
				greenwd: greenwd,
			})
			curve.NEvents += events
		}
		atRisk -= events + censored
	}
	return curve
}

// Quantile returns the smallest event time at which the survival function
// drops to 1-p or below, NaN when the curve never reaches it. Quantile(0.5)
// is the median survival time.
func (c KMCurve) Quantile(p float64) float64 {
	target := 1 - p
	for _, pt := range c.Points {
		if pt.Surv <= target+1e-12 {
			return pt.Time
		}
	}
	return math.NaN()
}

// Median is the median survival time
func (c KMCurve) Median() float64 {
	return c.Quantile(0.5)
}

// MedianCI returns the median survival time with a Brookmeyer-Crowley style
// confidence interval derived from log-log (Greenwood) pointwise bands. An
// endpoint the bands never reach is reported missing.
func (c KMCurve) MedianCI(confLevel float64) (median, lcl, ucl float64) {
	median = c.Median()
	lcl, ucl = math.NaN(), math.NaN()
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.5 + confLevel/2)
	for _, pt := range c.Points {
		lo, hi := logLogBand(pt.Surv, pt.greenwd, z)
		if math.IsNaN(lcl) && lo <= 0.5 {
			lcl = pt.Time
		}
		if math.IsNaN(ucl) && hi <= 0.5 {
			ucl = pt.Time
		}
	}
	return median, lcl, ucl
}

// logLogBand computes the pointwise confidence band for S(t) on the
// complementary log-log scale, which keeps the band inside (0, 1).
func logLogBand(surv, greenwd, z float64) (lo, hi float64) {
	if surv <= 0 {
		return 0, 0
	}
	if surv >= 1 {
		return 1, 1
	}
	se := math.Sqrt(greenwd) / math.Abs(math.Log(surv))
	theta := math.Exp(z * se)
	return math.Pow(surv, theta), math.Pow(surv, 1/theta)
}

// LogRank performs the two-group log-rank test between the first two arm
// levels. Subjects with a missing time or arm are excluded (complete-case);
// degenerate input (one populated group, no events, more than two levels)
// yields a missing p-value.
func LogRank(time []float64, event []bool, arm *frame.Factor) float64 {
	if arm.NumLevels() != 2 {
		return math.NaN()
	}
	type obs struct {
		t     float64
		event bool
		g     int
	}
	var data []obs
	for i := 0; i < arm.Len(); i++ {
		if g := arm.Code(i); g >= 0 && !math.IsNaN(time[i]) {
			data = append(data, obs{t: time[i], event: event[i], g: g})
		}
	}
	sort.Slice(data, func(a, b int) bool { return data[a].t < data[b].t })

	nRisk := [2]float64{}
	for _, o := range data {
		nRisk[o.g]++
	}
	if nRisk[0] == 0 || nRisk[1] == 0 {
		return math.NaN()
	}

	var oMinusE, variance float64
	for i := 0; i < len(data); {
		t := data[i].t
		d := [2]float64{}
		removed := [2]float64{}
		for i < len(data) && data[i].t == t {
			if data[i].event {
				d[data[i].g]++
			}
			removed[data[i].g]++
			i++
		}
		dTot := d[0] + d[1]
		nTot := nRisk[0] + nRisk[1]
		if dTot > 0 && nTot > 1 {
			expected := dTot * nRisk[0] / nTot
			oMinusE += d[0] - expected
			variance += dTot * (nRisk[0] / nTot) * (nRisk[1] / nTot) * (nTot - dTot) / (nTot - 1)
		}
		nRisk[0] -= removed[0]
		nRisk[1] -= removed[1]
	}
	if variance == 0 {
		return math.NaN()
	}
	stat := oMinusE * oMinusE / variance
	return distuv.ChiSquared{K: 1}.Survival(stat)
}
