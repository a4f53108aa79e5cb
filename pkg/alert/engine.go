package alert

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

// ErrUnknownAlert is returned when acknowledging or dismissing an alert ID
// the engine does not hold.
var ErrUnknownAlert = errors.New("alert: unknown alert id")

// State is one user-facing alert. Created by the engine, mutated only
// through Acknowledge/Dismiss, dropped once dismissed.
type State struct {
	ID             string           `json:"id"`
	FlagID         string           `json:"flag_id"`
	Type           signals.FlagType `json:"type"`
	Severity       signals.Severity `json:"severity"`
	Message        string           `json:"message"`
	CreatedAt      time.Time        `json:"created_at"`
	AcknowledgedAt time.Time        `json:"acknowledged_at,omitempty"`
	DismissedAt    time.Time        `json:"dismissed_at,omitempty"`
}

// Engine debounces flags into alerts and maintains the session risk score.
// At most one hard alert is current at a time; further hard alerts queue
// behind it. All state is owned exclusively by the engine.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	disposed bool

	// Debounce state. Grace periods run on the sample clock carried by
	// flag timestamps, so replayed sessions behave like live ones.
	counts     map[signals.FlagType]int
	graceUntil map[signals.FlagType]time.Time
	lastFlag   map[signals.FlagType]time.Time

	// Alert state.
	soft       []*State
	activeHard *State
	hardQueue  []*State
	byID       map[string]*State

	// Risk state.
	risk       float64
	lastUpdate time.Time
	eyesOff    bool

	now func() time.Time

	// Callbacks. Set before feeding flags; not synchronized afterwards.
	OnSoftAlert       func(State)
	OnHardAlert       func(State)
	OnAlertDismissed  func(id string)
	OnReviewThreshold func(risk float64)
}

// NewEngine creates an alert engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:        cfg,
		counts:     make(map[signals.FlagType]int),
		graceUntil: make(map[signals.FlagType]time.Time),
		lastFlag:   make(map[signals.FlagType]time.Time),
		byID:       make(map[string]*State),
		now:        time.Now,
	}
}

// ProcessFlag consumes one flag event: updates the risk score, then applies
// debouncing and grace periods to decide whether an alert surfaces.
func (e *Engine) ProcessFlag(flag signals.FlagEvent) {
	e.mu.Lock()

	if e.disposed {
		e.mu.Unlock()
		return
	}

	e.advanceLocked(flag.Timestamp)
	e.lastFlag[flag.Type] = flag.Timestamp
	if flag.Severity == signals.SeverityHard {
		e.bumpRiskLocked(e.cfg.HardEventBonus)
	}

	threshold := e.cfg.SoftAlertFrames
	if flag.Severity == signals.SeverityHard {
		threshold = e.cfg.HardAlertFrames
	}

	if until, ok := e.graceUntil[flag.Type]; ok && flag.Timestamp.Before(until) {
		e.counts[flag.Type] = 0
		e.mu.Unlock()
		return
	}

	e.counts[flag.Type]++
	if e.counts[flag.Type] < threshold {
		e.mu.Unlock()
		return
	}
	e.counts[flag.Type] = 0

	st := &State{
		ID:        uuid.NewString(),
		FlagID:    flag.ID,
		Type:      flag.Type,
		Severity:  flag.Severity,
		Message:   messageFor(flag.Type),
		CreatedAt: flag.Timestamp,
	}
	e.byID[st.ID] = st

	var cb func(State)
	if flag.Severity == signals.SeverityHard {
		if e.activeHard == nil {
			e.activeHard = st
			cb = e.OnHardAlert
		} else {
			e.hardQueue = append(e.hardQueue, st)
		}
	} else {
		e.soft = append(e.soft, st)
		cb = e.OnSoftAlert
	}
	snapshot := *st
	e.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// ObserveEyesOff reports the per-tick eyes-off state so continuous eyes-off
// seconds accrue risk. Call on every processed frame.
func (e *Engine) ObserveEyesOff(eyesOff bool, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.advanceLocked(now)
	e.eyesOff = eyesOff
}

// AcknowledgeAlert marks an alert as seen without removing it.
func (e *Engine) AcknowledgeAlert(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.byID[id]
	if !ok {
		return ErrUnknownAlert
	}
	if st.AcknowledgedAt.IsZero() {
		st.AcknowledgedAt = e.now()
	}
	return nil
}

// DismissAlert removes an alert, starts the grace period for its type, and
// promotes the next queued hard alert if the current one was dismissed.
func (e *Engine) DismissAlert(id string) error {
	e.mu.Lock()

	st, ok := e.byID[id]
	if !ok {
		e.mu.Unlock()
		return ErrUnknownAlert
	}
	now := e.now()
	st.DismissedAt = now
	delete(e.byID, id)

	// Anchor the grace period to the last flag of this type rather than
	// the wall clock; flag timestamps may be replayed from a recording.
	graceFrom := e.lastFlag[st.Type]
	if graceFrom.IsZero() {
		graceFrom = now
	}
	e.graceUntil[st.Type] = graceFrom.Add(e.cfg.GracePeriod)
	e.counts[st.Type] = 0

	var promoted *State
	if e.activeHard != nil && e.activeHard.ID == id {
		e.activeHard = nil
		if len(e.hardQueue) > 0 {
			promoted = e.hardQueue[0]
			e.hardQueue = e.hardQueue[1:]
			e.activeHard = promoted
		}
	} else {
		for i, s := range e.soft {
			if s.ID == id {
				e.soft = append(e.soft[:i], e.soft[i+1:]...)
				break
			}
		}
	}

	dismissed := e.OnAlertDismissed
	e.mu.Unlock()

	if dismissed != nil {
		dismissed(id)
	}
	if promoted != nil {
		e.fire(e.OnHardAlert, promoted)
	}
	return nil
}

// ClearAllAlerts empties every queue without triggering grace periods.
func (e *Engine) ClearAllAlerts() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.soft = nil
	e.activeHard = nil
	e.hardQueue = nil
	e.byID = make(map[string]*State)
	e.counts = make(map[signals.FlagType]int)
}

// GetActiveAlerts returns the current soft alerts plus the active hard
// alert, if any.
func (e *Engine) GetActiveAlerts() []State {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]State, 0, len(e.soft)+1)
	if e.activeHard != nil {
		out = append(out, *e.activeHard)
	}
	for _, s := range e.soft {
		out = append(out, *s)
	}
	return out
}

// Risk returns the current risk score without advancing time.
func (e *Engine) Risk() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.risk
}

// Dispose releases callbacks and queues. Further calls are no-ops.
func (e *Engine) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.disposed = true
	e.soft = nil
	e.activeHard = nil
	e.hardQueue = nil
	e.OnSoftAlert = nil
	e.OnHardAlert = nil
	e.OnAlertDismissed = nil
	e.OnReviewThreshold = nil
}

// advanceLocked accrues risk for elapsed sample time: eyes-off seconds add
// risk; decay applies only while no violation is active, so an undismissed
// hard alert holds the score.
func (e *Engine) advanceLocked(now time.Time) {
	if now.IsZero() {
		return
	}
	if e.lastUpdate.IsZero() || now.Before(e.lastUpdate) {
		e.lastUpdate = now
		return
	}
	dt := now.Sub(e.lastUpdate).Seconds()
	e.lastUpdate = now

	if e.eyesOff {
		e.bumpRiskLocked(e.cfg.EyesOffPerSecond * dt)
	} else if e.activeHard == nil {
		e.risk = clamp(e.risk-e.cfg.DecayPerSecond*dt, 0, 100)
	}
}

func (e *Engine) bumpRiskLocked(delta float64) {
	before := e.risk
	e.risk = clamp(e.risk+delta, 0, 100)
	if cb := e.OnReviewThreshold; cb != nil &&
		before < e.cfg.ReviewThreshold && e.risk >= e.cfg.ReviewThreshold {
		go cb(e.risk)
	}
}

func (e *Engine) fire(cb func(State), st *State) {
	if cb != nil {
		cb(*st)
	}
}

func messageFor(t signals.FlagType) string {
	switch t {
	case signals.FlagEyesOff:
		return "Please keep your eyes on the screen."
	case signals.FlagHeadPose:
		return "Please face the screen directly."
	case signals.FlagTabBlur:
		return "Leaving the assessment window is not allowed."
	case signals.FlagSecondFace:
		return "Another person was detected in view."
	case signals.FlagDeviceObject:
		return "A phone or similar device was detected in view."
	case signals.FlagShadowAnomaly:
		return "Unstable lighting detected. Please adjust your environment."
	case signals.FlagFaceMissing:
		return "Your face is not clearly visible to the camera."
	case signals.FlagDownGlance:
		return "Repeated downward glances detected."
	default:
		return "Integrity violation detected."
	}
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
