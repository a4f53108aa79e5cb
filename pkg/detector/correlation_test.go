package detector

import (
	"testing"
	"time"

	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

func TestYawCursorCorrelationFlagsExternalMonitor(t *testing.T) {
	d := New(DefaultConfig())

	var flags []signals.FlagEvent
	for i := 0; i < 20; i++ {
		ts := t0.Add(time.Duration(i) * 100 * time.Millisecond)
		fs := wellBehaved(ts)
		fs.HeadPose.Yaw = float64(i) // stays inside the 30 degree limit
		flags = append(flags, d.ProcessVisionSignals(fs, "")...)

		// Cursor tracks yaw linearly, as it would on a mirrored display.
		d.OnPointerMove(3*float64(i)+5, ts)
	}

	var hits int
	for _, f := range flags {
		if f.Type != signals.FlagHeadPose {
			continue
		}
		details, ok := f.Details.(signals.HeadPoseDetails)
		if !ok || !details.SuspectedExternalMonitor {
			continue
		}
		hits++
		if f.Severity != signals.SeverityHard {
			t.Errorf("correlation flag severity = %q, want hard", f.Severity)
		}
		if details.Correlation < 0.99 {
			t.Errorf("correlation = %v, want ~1 for a perfectly linear sweep", details.Correlation)
		}
	}
	if hits != 1 {
		t.Errorf("expected exactly one external-monitor flag, got %d", hits)
	}
}

func TestUncorrelatedCursorDoesNotFlag(t *testing.T) {
	d := New(DefaultConfig())

	var flags []signals.FlagEvent
	for i := 0; i < 20; i++ {
		ts := t0.Add(time.Duration(i) * 100 * time.Millisecond)
		fs := wellBehaved(ts)
		if i%2 == 0 {
			fs.HeadPose.Yaw = 5
		} else {
			fs.HeadPose.Yaw = -5
		}
		flags = append(flags, d.ProcessVisionSignals(fs, "")...)
		d.OnPointerMove(10*float64(i), ts)
	}

	for _, f := range flags {
		if details, ok := f.Details.(signals.HeadPoseDetails); ok && details.SuspectedExternalMonitor {
			t.Fatalf("alternating yaw against a linear cursor flagged as correlated (r=%v)", details.Correlation)
		}
	}
}

func TestPointerMovesIgnoredBeforeFirstFrame(t *testing.T) {
	d := New(DefaultConfig())

	// No yaw has been observed yet, so these samples have no pair.
	for i := 0; i < 30; i++ {
		d.OnPointerMove(float64(i), t0.Add(time.Duration(i)*100*time.Millisecond))
	}

	flags := d.ProcessVisionSignals(wellBehaved(t0.Add(3*time.Second)), "")
	for _, f := range flags {
		if details, ok := f.Details.(signals.HeadPoseDetails); ok && details.SuspectedExternalMonitor {
			t.Fatal("correlation fired from unpaired pointer samples")
		}
	}
}
