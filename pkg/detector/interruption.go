package detector

import (
	"time"

	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

// InterruptionKind names the browser or input event that interrupted
// monitoring.
type InterruptionKind string

const (
	KindVisibilityHidden InterruptionKind = "visibility_hidden"
	KindWindowBlur       InterruptionKind = "window_blur"
	KindFullscreenExit   InterruptionKind = "fullscreen_exit"
	KindBlockedAction    InterruptionKind = "blocked_action"
	KindContextMenu      InterruptionKind = "context_menu"
)

// Interruption is one discrete browser-level event delivered out-of-band
// from the per-frame path. The originating client is responsible for
// preventing the default browser action where applicable.
type Interruption struct {
	Kind      InterruptionKind `json:"kind"`
	Timestamp time.Time        `json:"timestamp"`
	Detail    string           `json:"detail,omitempty"` // e.g. the blocked key combo
}

// InterruptionSource is an injected stream of interruption events, keeping
// the detector free of any compiled-in UI runtime dependency.
type InterruptionSource interface {
	// OnInterruption registers a receiver and returns a cancel function.
	OnInterruption(fn func(Interruption)) (cancel func())
}

// Bind subscribes the detector to an interruption source. The subscription
// is detached on Dispose.
func (d *Detector) Bind(src InterruptionSource) {
	cancel := src.OnInterruption(func(ev Interruption) {
		d.HandleInterruption(ev)
	})

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		cancel()
		return
	}
	d.cancels = append(d.cancels, cancel)
}

// HandleInterruption immediately raises a hard TAB_BLUR flag for the event.
// Debouncing is deliberately left to the alert engine. Returns nil after
// Dispose.
func (d *Detector) HandleInterruption(ev Interruption) *signals.FlagEvent {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return nil
	}
	cb := d.OnBrowserEventFlag
	d.mu.Unlock()

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	f := signals.NewFlag(signals.FlagTabBlur, signals.SeverityHard, ts, 1, signals.InterruptionDetails{
		Event:  string(ev.Kind),
		Detail: ev.Detail,
	})

	if cb != nil {
		cb(f)
	}
	return &f
}
