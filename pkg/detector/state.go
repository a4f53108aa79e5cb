package detector

import "time"

// yawCursorPair pairs a head-yaw sample with the cursor x-position observed
// at the same pointer event, so the correlation buffers cannot desynchronize.
type yawCursorPair struct {
	at      time.Time
	yaw     float64
	cursorX float64
}

// state holds every rule's timer, counter, and rolling buffer in one flat
// record, so resetting is a single assignment.
type state struct {
	eyesOff     durationTimer
	headPose    durationTimer
	shadow      durationTimer
	faceMissing durationTimer
	occlusion   durationTimer

	secondFaceFrames   int
	deviceObjectFrames int

	downGlances []time.Time
	yawCursor   []yawCursorPair

	lastYaw    float64
	hasLastYaw bool
}

// durationTimer runs the shared timer pattern: arm on onset, fire once when
// elapsed reaches the threshold, then stay latched until the condition stops
// holding. A sustained violation episode produces exactly one firing.
type durationTimer struct {
	start time.Time
	fired bool
}

// observe advances the timer with one frame's verdict. Returns true on the
// single firing frame of an episode.
func (dt *durationTimer) observe(violating bool, now time.Time, threshold time.Duration) bool {
	if !violating {
		*dt = durationTimer{}
		return false
	}
	if dt.fired {
		return false
	}
	if dt.start.IsZero() {
		dt.start = now
		return false
	}
	if now.Sub(dt.start) >= threshold {
		dt.fired = true
		return true
	}
	return false
}

// frameRule runs the shared counter pattern: count consecutive qualifying
// frames, fire once at the threshold, reset when fired or interrupted.
func frameRule(counter *int, violating bool, threshold int) bool {
	if !violating {
		*counter = 0
		return false
	}
	*counter++
	if *counter >= threshold {
		*counter = 0
		return true
	}
	return false
}
