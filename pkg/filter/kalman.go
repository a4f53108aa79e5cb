package filter

import "math"

// kalman1D is a constant-position Kalman filter over a single scalar.
// With a static state model the update reduces to an adaptive-gain blend of
// the previous estimate and the new measurement.
type kalman1D struct {
	q, r   float64 // process and measurement noise
	x      float64 // state estimate
	p      float64 // estimate covariance
	primed bool
}

func newKalman1D(q, r float64) kalman1D {
	if q <= 0 {
		q = 1e-6
	}
	if r <= 0 {
		r = 1e-6
	}
	return kalman1D{q: q, r: r}
}

// update folds one measurement into the estimate and returns it.
// Non-finite measurements leave the state untouched.
func (k *kalman1D) update(z float64) float64 {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return k.x
	}
	if !k.primed {
		k.x = z
		k.p = 1
		k.primed = true
		return z
	}
	k.p += k.q
	gain := k.p / (k.p + k.r)
	k.x += gain * (z - k.x)
	k.p *= 1 - gain
	return k.x
}

func (k *kalman1D) reset() {
	k.x = 0
	k.p = 0
	k.primed = false
}

// ema is an exponential moving average with configurable weight on the
// newest sample.
type ema struct {
	alpha  float64
	value  float64
	primed bool
}

func newEMA(alpha float64) ema {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}
	return ema{alpha: alpha}
}

func (e *ema) update(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return e.value
	}
	if !e.primed {
		e.value = v
		e.primed = true
		return v
	}
	e.value = e.alpha*v + (1-e.alpha)*e.value
	return e.value
}

func (e *ema) reset() {
	e.value = 0
	e.primed = false
}
