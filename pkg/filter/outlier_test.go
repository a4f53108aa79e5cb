package filter

import (
	"math"
	"testing"
)

func TestKalmanConvergesToConstant(t *testing.T) {
	k := newKalman1D(0.01, 0.1)

	if got := k.update(5); got != 5 {
		t.Fatalf("first sample = %v, want pass-through 5", got)
	}
	var got float64
	for i := 0; i < 50; i++ {
		got = k.update(5)
	}
	if math.Abs(got-5) > 1e-6 {
		t.Errorf("estimate after 50 constant samples = %v, want ~5", got)
	}
}

func TestKalmanSmoothsJumps(t *testing.T) {
	k := newKalman1D(0.01, 0.1)
	for i := 0; i < 20; i++ {
		k.update(1)
	}
	got := k.update(10)
	if got <= 1 || got >= 10 {
		t.Errorf("estimate after a jump = %v, want strictly between 1 and 10", got)
	}
}

func TestEMAFirstSamplePassesThrough(t *testing.T) {
	e := newEMA(0.3)
	if got := e.update(2); got != 2 {
		t.Fatalf("first sample = %v, want 2", got)
	}
	got := e.update(4)
	want := 0.3*4 + 0.7*2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("second sample = %v, want %v", got, want)
	}
}

func TestOutlierDetectorNeedsHistory(t *testing.T) {
	d := newOutlierDetector(10, 2.5, 1.5)

	if sev := d.observe(100); sev != 0 {
		t.Errorf("severity with empty window = %v, want 0", sev)
	}
	d.observe(1)
	if sev := d.observe(200); sev != 0 {
		t.Errorf("severity below 3 samples = %v, want 0", sev)
	}
}

func TestOutlierDetectorScoresExtremes(t *testing.T) {
	d := newOutlierDetector(10, 2.5, 1.5)
	for _, v := range []float64{1.0, 1.1, 0.9, 1.0, 1.05, 0.95} {
		d.observe(v)
	}

	if sev := d.observe(1.02); sev != 0 {
		t.Errorf("inlier severity = %v, want 0", sev)
	}
	if sev := d.observe(10); sev <= 0.5 {
		t.Errorf("extreme severity = %v, want near 1", sev)
	}
}

func TestOutlierDetectorRejectsNonFinite(t *testing.T) {
	d := newOutlierDetector(10, 2.5, 1.5)
	if sev := d.observe(math.NaN()); sev != 1 {
		t.Errorf("NaN severity = %v, want 1", sev)
	}
	if sev := d.observe(math.Inf(1)); sev != 1 {
		t.Errorf("Inf severity = %v, want 1", sev)
	}
}

func TestQuantileInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	if got := quantile(sorted, 0.5); got != 2.5 {
		t.Errorf("median = %v, want 2.5", got)
	}
	if got := quantile(sorted, 0); got != 1 {
		t.Errorf("q0 = %v, want 1", got)
	}
	if got := quantile(sorted, 1); got != 4 {
		t.Errorf("q1 = %v, want 4", got)
	}
}
