package detector

import (
	"math"
	"time"

	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

// OnPointerMove records one cursor x-position. The sample is paired with the
// most recent head-yaw reading at arrival time, so yaw and cursor buffers
// evict together and cannot drift apart.
func (d *Detector) OnPointerMove(x float64, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed || !d.st.hasLastYaw {
		return
	}
	d.st.yawCursor = append(d.st.yawCursor, yawCursorPair{
		at:      at,
		yaw:     d.st.lastYaw,
		cursorX: x,
	})
}

// checkCorrelation evicts stale pairs and, once enough samples exist,
// computes the Pearson correlation between head yaw and cursor x. A strong
// correlation suggests the candidate is following a cursor on a second,
// untracked display.
func (d *Detector) checkCorrelation(now time.Time) *signals.FlagEvent {
	cutoff := now.Add(-d.cfg.Correlation.Window)
	kept := d.st.yawCursor[:0]
	for _, p := range d.st.yawCursor {
		if p.at.After(cutoff) {
			kept = append(kept, p)
		}
	}
	d.st.yawCursor = kept

	if len(d.st.yawCursor) < d.cfg.Correlation.MinSamples {
		return nil
	}

	r := pearson(d.st.yawCursor)
	if math.IsNaN(r) || math.Abs(r) < d.cfg.Correlation.Threshold {
		return nil
	}

	// Consume the window so one sweep fires once.
	d.st.yawCursor = d.st.yawCursor[:0]

	f := signals.NewFlag(signals.FlagHeadPose, signals.SeverityHard, now, math.Abs(r), signals.HeadPoseDetails{
		Correlation:              r,
		SuspectedExternalMonitor: true,
	})
	return &f
}

// pearson computes the correlation coefficient between yaw and cursor x
// across the paired samples. Returns NaN when either series is constant.
func pearson(pairs []yawCursorPair) float64 {
	n := float64(len(pairs))
	var sumY, sumC float64
	for _, p := range pairs {
		sumY += p.yaw
		sumC += p.cursorX
	}
	meanY := sumY / n
	meanC := sumC / n

	var cov, varY, varC float64
	for _, p := range pairs {
		dy := p.yaw - meanY
		dc := p.cursorX - meanC
		cov += dy * dc
		varY += dy * dy
		varC += dc * dc
	}
	if varY == 0 || varC == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varY*varC)
}
