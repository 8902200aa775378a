package estimators

import (
	"math"
	"testing"

	"clintab/domain/frame"
)

func TestKaplanMeierHandComputed(t *testing.T) {
	// Deaths at 1, 2 and 4; censored at 3 and 5.
	// S(1) = 4/5 = 0.8, S(2) = 0.8 * 3/4 = 0.6, S(4) = 0.6 * 1/2 = 0.3.
	time := []float64{1, 2, 3, 4, 5}
	event := []bool{true, true, false, true, false}

	c := KaplanMeier(time, event)
	if c.NEvents != 3 {
		t.Errorf("NEvents = %d, want 3", c.NEvents)
	}

	wantSurv := map[float64]float64{1: 0.8, 2: 0.6, 4: 0.3}
	for _, p := range c.Points {
		want, ok := wantSurv[p.Time]
		if !ok {
			continue
		}
		if math.Abs(p.Surv-want) > 1e-12 {
			t.Errorf("S(%v) = %v, want %v", p.Time, p.Surv, want)
		}
	}

	if m := c.Median(); m != 4 {
		t.Errorf("median = %v, want 4 (first time with S <= 0.5)", m)
	}
	if q := c.Quantile(0.25); q != 2 {
		t.Errorf("25%% quantile = %v, want 2", q)
	}
}

func TestKaplanMeierMedianNotReached(t *testing.T) {
	// Only one death among five: the curve never drops to 0.5.
	time := []float64{1, 2, 3, 4, 5}
	event := []bool{true, false, false, false, false}

	c := KaplanMeier(time, event)
	if m := c.Median(); !math.IsNaN(m) {
		t.Errorf("median = %v, want missing when the curve stays above 0.5", m)
	}
}

func TestKaplanMeierMedianCIBracketsMedian(t *testing.T) {
	time := make([]float64, 0, 40)
	event := make([]bool, 0, 40)
	for i := 1; i <= 40; i++ {
		time = append(time, float64(i))
		event = append(event, i%4 != 0)
	}

	c := KaplanMeier(time, event)
	median, lcl, ucl := c.MedianCI(0.95)
	if math.IsNaN(median) {
		t.Fatal("median should be reached")
	}
	if !math.IsNaN(lcl) && lcl > median {
		t.Errorf("lcl %v exceeds median %v", lcl, median)
	}
	if !math.IsNaN(ucl) && ucl < median {
		t.Errorf("ucl %v is below median %v", ucl, median)
	}
}

func TestKaplanMeierExcludesMissingTimes(t *testing.T) {
	// A missing time must not form its own pseudo event time or deplete the
	// risk set: the curve equals the complete-case curve.
	withMissing := KaplanMeier(
		[]float64{1, 2, math.NaN(), 3, 4, 5},
		[]bool{true, true, true, false, true, false},
	)
	complete := KaplanMeier(
		[]float64{1, 2, 3, 4, 5},
		[]bool{true, true, false, true, false},
	)

	if withMissing.N != 5 {
		t.Fatalf("N = %d, want the 5 complete cases", withMissing.N)
	}
	if withMissing.NEvents != complete.NEvents {
		t.Errorf("NEvents = %d, want %d", withMissing.NEvents, complete.NEvents)
	}
	if len(withMissing.Points) != len(complete.Points) {
		t.Fatalf("got %d curve points, want %d", len(withMissing.Points), len(complete.Points))
	}
	for i, p := range withMissing.Points {
		q := complete.Points[i]
		if p.Time != q.Time || p.Surv != q.Surv || p.NRisk != q.NRisk {
			t.Errorf("point %d = (t %v, S %v, risk %d), want (t %v, S %v, risk %d)",
				i, p.Time, p.Surv, p.NRisk, q.Time, q.Surv, q.NRisk)
		}
	}
	if m, want := withMissing.Median(), complete.Median(); m != want {
		t.Errorf("median = %v, want %v", m, want)
	}
}

func TestKaplanMeierEmpty(t *testing.T) {
	c := KaplanMeier(nil, nil)
	if c.NEvents != 0 {
		t.Errorf("NEvents = %d, want 0", c.NEvents)
	}
	if m := c.Median(); !math.IsNaN(m) {
		t.Errorf("median of an empty curve = %v, want missing", m)
	}
}

func TestLogRankSeparatedGroups(t *testing.T) {
	// Group A dies early, group B late: the test should reject clearly.
	var time []float64
	var event []bool
	var arm []string
	for i := 1; i <= 20; i++ {
		time = append(time, float64(i))
		event = append(event, true)
		arm = append(arm, "A")
		time = append(time, float64(i+100))
		event = append(event, true)
		arm = append(arm, "B")
	}
	fac := frame.MustFactor(arm, []string{"A", "B"})

	p := LogRank(time, event, fac)
	if math.IsNaN(p) {
		t.Fatal("log-rank p-value missing for a clean two-group comparison")
	}
	if p > 1e-6 {
		t.Errorf("p = %v, want strong evidence for fully separated groups", p)
	}
}

func TestLogRankExcludesMissingTimes(t *testing.T) {
	time := []float64{1, 2, 3, 4, math.NaN()}
	event := []bool{true, true, true, true, true}
	fac := frame.MustFactor([]string{"A", "B", "A", "B", "A"}, []string{"A", "B"})

	withMissing := LogRank(time, event, fac)
	complete := LogRank(time[:4], event[:4],
		frame.MustFactor([]string{"A", "B", "A", "B"}, []string{"A", "B"}))
	if math.IsNaN(withMissing) {
		t.Fatal("p-value missing with one excluded subject")
	}
	if withMissing != complete {
		t.Errorf("p = %v, want %v as if the missing-time subject were dropped", withMissing, complete)
	}
}

func TestLogRankDegenerate(t *testing.T) {
	// A single observed level cannot be compared.
	fac := frame.MustFactor([]string{"A", "A", "A"}, []string{"A"})
	p := LogRank([]float64{1, 2, 3}, []bool{true, true, false}, fac)
	if !math.IsNaN(p) {
		t.Errorf("p = %v, want missing for a one-level arm", p)
	}
}
