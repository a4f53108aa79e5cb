package filter

import (
	"math"
	"sort"
)

// outlierDetector keeps a sliding window of recent scalar samples and scores
// how far a new sample falls outside it, combining a z-score test with an
// IQR fence test. Outliers are never dropped; the caller discounts channel
// confidence by the returned severity instead.
type outlierDetector struct {
	window    []float64
	size      int
	zThresh   float64
	iqrFactor float64
}

func newOutlierDetector(size int, zThresh, iqrFactor float64) outlierDetector {
	if size < 3 {
		size = 3
	}
	return outlierDetector{
		window:    make([]float64, 0, size),
		size:      size,
		zThresh:   zThresh,
		iqrFactor: iqrFactor,
	}
}

// observe scores v against the current window, then appends it. The returned
// severity is 0 for inliers and grows toward 1 the further v sits beyond
// both the z-score threshold and the IQR fences.
func (d *outlierDetector) observe(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	severity := 0.0
	if len(d.window) >= 3 {
		severity = math.Max(d.zScoreSeverity(v), d.iqrSeverity(v))
	}

	d.window = append(d.window, v)
	if len(d.window) > d.size {
		d.window = d.window[1:]
	}
	return severity
}

func (d *outlierDetector) zScoreSeverity(v float64) float64 {
	mean, std := meanStd(d.window)
	if std == 0 {
		if v == mean {
			return 0
		}
		return 1
	}
	z := math.Abs(v-mean) / std
	if z <= d.zThresh {
		return 0
	}
	// Scale the excess so that twice the threshold saturates at 1.
	return clamp((z-d.zThresh)/d.zThresh, 0, 1)
}

func (d *outlierDetector) iqrSeverity(v float64) float64 {
	sorted := append([]float64(nil), d.window...)
	sort.Float64s(sorted)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	if iqr == 0 {
		return 0
	}
	lo := q1 - d.iqrFactor*iqr
	hi := q3 + d.iqrFactor*iqr
	var excess float64
	switch {
	case v < lo:
		excess = (lo - v) / (d.iqrFactor * iqr)
	case v > hi:
		excess = (v - hi) / (d.iqrFactor * iqr)
	default:
		return 0
	}
	return clamp(excess, 0, 1)
}

func (d *outlierDetector) reset() {
	d.window = d.window[:0]
}

func meanStd(vs []float64) (mean, std float64) {
	for _, v := range vs {
		mean += v
	}
	mean /= float64(len(vs))
	var sum float64
	for _, v := range vs {
		diff := v - mean
		sum += diff * diff
	}
	std = math.Sqrt(sum / float64(len(vs)))
	return mean, std
}

// quantile interpolates linearly within a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
