package alert

import (
	"testing"
	"time"

	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

var base = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func flagAt(t signals.FlagType, sev signals.Severity, ts time.Time) signals.FlagEvent {
	return signals.NewFlag(t, sev, ts, 0.9, signals.EyesOffDetails{})
}

// fixedClock pins the engine's wall clock for grace-period arithmetic.
func fixedClock(e *Engine, at time.Time) {
	e.now = func() time.Time { return at }
}

func TestSoftAlertDebounce(t *testing.T) {
	e := NewEngine(DefaultConfig())
	var fired []State
	e.OnSoftAlert = func(s State) { fired = append(fired, s) }

	e.ProcessFlag(flagAt(signals.FlagEyesOff, signals.SeveritySoft, base))
	e.ProcessFlag(flagAt(signals.FlagEyesOff, signals.SeveritySoft, base.Add(time.Second)))
	if len(fired) != 0 {
		t.Fatalf("alert surfaced after %d flags, want none before the 3rd", len(fired))
	}

	e.ProcessFlag(flagAt(signals.FlagEyesOff, signals.SeveritySoft, base.Add(2*time.Second)))
	if len(fired) != 1 {
		t.Fatalf("expected one soft alert after 3 consecutive flags, got %d", len(fired))
	}
	if fired[0].Type != signals.FlagEyesOff || fired[0].Severity != signals.SeveritySoft {
		t.Errorf("alert = %s/%s", fired[0].Type, fired[0].Severity)
	}
	if fired[0].Message == "" {
		t.Error("alert has no user-facing message")
	}
	if got := e.GetActiveAlerts(); len(got) != 1 {
		t.Errorf("active alerts = %d, want 1", len(got))
	}
}

func TestHardAlertSurfacesImmediately(t *testing.T) {
	e := NewEngine(DefaultConfig())
	var fired []State
	e.OnHardAlert = func(s State) { fired = append(fired, s) }

	e.ProcessFlag(flagAt(signals.FlagSecondFace, signals.SeverityHard, base))
	if len(fired) != 1 {
		t.Fatalf("expected a hard alert on the first flag, got %d", len(fired))
	}
}

func TestHardAlertsQueueBehindActive(t *testing.T) {
	e := NewEngine(DefaultConfig())
	fixedClock(e, base)

	var hard []State
	var dismissed []string
	e.OnHardAlert = func(s State) { hard = append(hard, s) }
	e.OnAlertDismissed = func(id string) { dismissed = append(dismissed, id) }

	e.ProcessFlag(flagAt(signals.FlagSecondFace, signals.SeverityHard, base))
	e.ProcessFlag(flagAt(signals.FlagDeviceObject, signals.SeverityHard, base.Add(time.Second)))

	if len(hard) != 1 {
		t.Fatalf("expected the second hard alert to queue, got %d callbacks", len(hard))
	}
	active := e.GetActiveAlerts()
	if len(active) != 1 || active[0].Type != signals.FlagSecondFace {
		t.Fatalf("active = %+v, want only the first hard alert", active)
	}

	if err := e.DismissAlert(active[0].ID); err != nil {
		t.Fatalf("DismissAlert: %v", err)
	}
	if len(dismissed) != 1 || dismissed[0] != active[0].ID {
		t.Errorf("dismiss callback = %v", dismissed)
	}
	if len(hard) != 2 || hard[1].Type != signals.FlagDeviceObject {
		t.Fatalf("expected the queued hard alert to be promoted, got %+v", hard)
	}
	active = e.GetActiveAlerts()
	if len(active) != 1 || active[0].Type != signals.FlagDeviceObject {
		t.Errorf("active after promotion = %+v", active)
	}
}

func TestGracePeriodSuppressesReRaise(t *testing.T) {
	e := NewEngine(DefaultConfig())
	fixedClock(e, base)

	var fired []State
	e.OnSoftAlert = func(s State) { fired = append(fired, s) }

	for i := 0; i < 3; i++ {
		e.ProcessFlag(flagAt(signals.FlagEyesOff, signals.SeveritySoft, base.Add(time.Duration(i)*time.Second)))
	}
	if len(fired) != 1 {
		t.Fatalf("setup: expected one alert, got %d", len(fired))
	}
	if err := e.DismissAlert(e.GetActiveAlerts()[0].ID); err != nil {
		t.Fatalf("DismissAlert: %v", err)
	}

	// Flags inside the 5s grace window are swallowed and reset the counter.
	for i := 0; i < 4; i++ {
		e.ProcessFlag(flagAt(signals.FlagEyesOff, signals.SeveritySoft, base.Add(time.Duration(i)*time.Second)))
	}
	if len(fired) != 1 {
		t.Fatalf("alert re-raised during grace period, got %d alerts", len(fired))
	}

	// Grace runs from the last flag of the type (base+2s), so it ends at
	// base+7s; the rule then debounces from scratch.
	for i := 0; i < 3; i++ {
		e.ProcessFlag(flagAt(signals.FlagEyesOff, signals.SeveritySoft, base.Add(time.Duration(7+i)*time.Second)))
	}
	if len(fired) != 2 {
		t.Errorf("expected a second alert after the grace period, got %d", len(fired))
	}
}

func TestGracePeriodRunsOnFlagTimestamps(t *testing.T) {
	// No pinned clock here: flag timestamps are months in the past, as in
	// a replayed recording. Grace must follow them, not the wall clock.
	e := NewEngine(DefaultConfig())

	var fired []State
	e.OnSoftAlert = func(s State) { fired = append(fired, s) }

	for i := 0; i < 3; i++ {
		e.ProcessFlag(flagAt(signals.FlagEyesOff, signals.SeveritySoft, base.Add(time.Duration(i)*time.Second)))
	}
	if len(fired) != 1 {
		t.Fatalf("setup: expected one alert, got %d", len(fired))
	}
	if err := e.DismissAlert(e.GetActiveAlerts()[0].ID); err != nil {
		t.Fatalf("DismissAlert: %v", err)
	}

	// Sample time has moved well past the 5s grace window.
	for i := 0; i < 3; i++ {
		e.ProcessFlag(flagAt(signals.FlagEyesOff, signals.SeveritySoft, base.Add(time.Duration(10+i)*time.Second)))
	}
	if len(fired) != 2 {
		t.Errorf("replayed flags after the grace window raised %d alerts, want 2", len(fired))
	}
}

func TestEyesOffRiskAccrual(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EyesOffPerSecond = 3
	e := NewEngine(cfg)

	e.ObserveEyesOff(false, base)
	e.ObserveEyesOff(true, base)
	e.ObserveEyesOff(true, base.Add(5*time.Second))

	if got := e.Risk(); got != 15 {
		t.Errorf("risk after 5s eyes-off at 3/s = %v, want exactly 15", got)
	}
}

func TestRiskDecaysWhenClean(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EyesOffPerSecond = 3
	cfg.DecayPerSecond = 1
	e := NewEngine(cfg)

	e.ObserveEyesOff(true, base)
	e.ObserveEyesOff(true, base.Add(5*time.Second)) // risk 15
	e.ObserveEyesOff(false, base.Add(5*time.Second))
	e.ObserveEyesOff(false, base.Add(15*time.Second))

	if got := e.Risk(); got != 5 {
		t.Errorf("risk after 10s of decay = %v, want 5", got)
	}

	e.ObserveEyesOff(false, base.Add(time.Hour))
	if got := e.Risk(); got != 0 {
		t.Errorf("risk must clamp at zero, got %v", got)
	}
}

func TestRiskHoldsWhileHardAlertActive(t *testing.T) {
	e := NewEngine(DefaultConfig())
	fixedClock(e, base)

	e.ProcessFlag(flagAt(signals.FlagSecondFace, signals.SeverityHard, base))
	if got := e.Risk(); got != 10 {
		t.Fatalf("risk after hard flag = %v, want 10", got)
	}

	// Clean frames while the hard alert is undismissed: the score holds.
	e.ObserveEyesOff(false, base.Add(30*time.Second))
	if got := e.Risk(); got != 10 {
		t.Errorf("risk decayed to %v with a hard alert still active, want 10", got)
	}

	// Dismissal resolves the violation and decay resumes.
	if err := e.DismissAlert(e.GetActiveAlerts()[0].ID); err != nil {
		t.Fatalf("DismissAlert: %v", err)
	}
	e.ObserveEyesOff(false, base.Add(34*time.Second))
	if got := e.Risk(); got != 6 {
		t.Errorf("risk after 4s of decay = %v, want 6", got)
	}
}

func TestHardEventBonusAndClamp(t *testing.T) {
	e := NewEngine(DefaultConfig())

	e.ProcessFlag(flagAt(signals.FlagTabBlur, signals.SeverityHard, base))
	if got := e.Risk(); got != DefaultConfig().HardEventBonus {
		t.Errorf("risk after one hard event = %v, want %v", got, DefaultConfig().HardEventBonus)
	}

	for i := 0; i < 20; i++ {
		e.ProcessFlag(flagAt(signals.FlagTabBlur, signals.SeverityHard, base))
	}
	if got := e.Risk(); got != 100 {
		t.Errorf("risk must clamp at 100, got %v", got)
	}
}

func TestReviewThresholdFiresOnceOnCrossing(t *testing.T) {
	e := NewEngine(DefaultConfig())
	crossed := make(chan float64, 4)
	e.OnReviewThreshold = func(risk float64) { crossed <- risk }

	// Ten hard bonuses of 10 sweep risk from 0 to 100, crossing 60 once.
	for i := 0; i < 10; i++ {
		e.ProcessFlag(flagAt(signals.FlagTabBlur, signals.SeverityHard, base))
	}

	select {
	case risk := <-crossed:
		if risk < DefaultConfig().ReviewThreshold {
			t.Errorf("callback risk = %v, below the threshold", risk)
		}
	case <-time.After(time.Second):
		t.Fatal("review-threshold callback never fired")
	}
	select {
	case <-crossed:
		t.Error("review-threshold callback fired more than once for one crossing")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAcknowledgeAndUnknownIDs(t *testing.T) {
	e := NewEngine(DefaultConfig())
	fixedClock(e, base)

	e.ProcessFlag(flagAt(signals.FlagSecondFace, signals.SeverityHard, base))
	id := e.GetActiveAlerts()[0].ID

	if err := e.AcknowledgeAlert(id); err != nil {
		t.Fatalf("AcknowledgeAlert: %v", err)
	}
	if got := e.GetActiveAlerts()[0]; got.AcknowledgedAt.IsZero() {
		t.Error("AcknowledgedAt not set")
	}

	if err := e.AcknowledgeAlert("nope"); err != ErrUnknownAlert {
		t.Errorf("AcknowledgeAlert(unknown) = %v, want ErrUnknownAlert", err)
	}
	if err := e.DismissAlert("nope"); err != ErrUnknownAlert {
		t.Errorf("DismissAlert(unknown) = %v, want ErrUnknownAlert", err)
	}
}

func TestClearAllAlertsSkipsGracePeriod(t *testing.T) {
	e := NewEngine(DefaultConfig())
	var fired []State
	e.OnSoftAlert = func(s State) { fired = append(fired, s) }

	for i := 0; i < 3; i++ {
		e.ProcessFlag(flagAt(signals.FlagEyesOff, signals.SeveritySoft, base.Add(time.Duration(i)*time.Second)))
	}
	e.ClearAllAlerts()
	if got := e.GetActiveAlerts(); len(got) != 0 {
		t.Fatalf("active alerts after clear = %d", len(got))
	}

	// No grace period: the same type can alert again right away.
	for i := 3; i < 6; i++ {
		e.ProcessFlag(flagAt(signals.FlagEyesOff, signals.SeveritySoft, base.Add(time.Duration(i)*time.Second)))
	}
	if len(fired) != 2 {
		t.Errorf("expected a fresh alert after ClearAllAlerts, got %d total", len(fired))
	}
}

func TestDisposeStopsEngine(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Dispose()
	e.Dispose()

	e.ProcessFlag(flagAt(signals.FlagSecondFace, signals.SeverityHard, base))
	e.ObserveEyesOff(true, base.Add(5*time.Second))
	if got := e.Risk(); got != 0 {
		t.Errorf("disposed engine accrued risk %v", got)
	}
	if got := e.GetActiveAlerts(); len(got) != 0 {
		t.Errorf("disposed engine holds %d alerts", len(got))
	}
}
