// Package engine drives the per-frame proctoring pipeline: it pulls a frame
// (or remotely-estimated signals), runs the temporal filter and the cheat
// detector in order, and delivers results through callbacks. The loop adapts
// its frame rate to processing load and survives per-frame faults.
package engine

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sayantanmandal1/eyesonscreen/internal/log"
	"github.com/sayantanmandal1/eyesonscreen/pkg/alert"
	"github.com/sayantanmandal1/eyesonscreen/pkg/detector"
	"github.com/sayantanmandal1/eyesonscreen/pkg/filter"
	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

var (
	// ErrDisposed is returned when starting an engine after Dispose.
	ErrDisposed = errors.New("engine: disposed")

	// ErrNoSource is returned when neither a video source nor a signals
	// provider was supplied.
	ErrNoSource = errors.New("engine: no frame or signals source")
)

// Deps are the collaborators the engine drives each tick. Either Video (with
// Estimators) or Signals must be set; Filter and Detector are required.
type Deps struct {
	Video      VideoSource
	Estimators Estimators
	Signals    SignalsProvider

	Filter   *filter.System
	Detector *detector.Detector
	Alerts   *alert.Engine
}

// Engine is the frame pump. idle -> running -> idle via Start/Stop.
type Engine struct {
	cfg  Config
	deps Deps

	// Callbacks, set before Start.
	OnSignalsUpdate     func(signals.FilteredSignals)
	OnFlags             func([]signals.FlagEvent)
	OnPerformanceUpdate func(Metrics)
	OnError             func(error)

	mu       sync.Mutex
	running  bool
	disposed bool
	stop     chan struct{}
	done     chan struct{}

	// Scheduling state, owned by the run goroutine while running.
	targetFPS int
	procTimes []time.Duration

	// Counters, guarded by mu.
	framesProcessed uint64
	droppedFrames   uint64
	lastSignalsAt   time.Time

	questionID string
}

// New creates an engine. TargetFPS outside [MinFPS, MaxFPS] is clamped.
func New(cfg Config, deps Deps) *Engine {
	if cfg.TargetFPS < MinFPS {
		cfg.TargetFPS = MinFPS
	}
	if cfg.TargetFPS > MaxFPS {
		cfg.TargetFPS = MaxFPS
	}
	if cfg.ProcTimeWindow <= 0 {
		cfg.ProcTimeWindow = DefaultConfig().ProcTimeWindow
	}
	if cfg.TelemetryInterval <= 0 {
		cfg.TelemetryInterval = DefaultConfig().TelemetryInterval
	}
	return &Engine{
		cfg:       cfg,
		deps:      deps,
		targetFPS: cfg.TargetFPS,
	}
}

// SetQuestionID attaches a question identifier to subsequently produced
// flags, so a reviewer can tie violations to quiz items.
func (e *Engine) SetQuestionID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.questionID = id
}

// Start launches the monitoring loop. A no-op when already running.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return ErrDisposed
	}
	if e.running {
		return nil
	}
	if e.deps.Video == nil && e.deps.Signals == nil {
		return ErrNoSource
	}

	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.run(e.stop, e.done)

	log.Info("proctor engine started", "target_fps", e.targetFPS, "adaptive", e.cfg.Adaptive)
	return nil
}

// Stop halts the loop and waits for the in-flight tick to finish. Safe to
// call from any state.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	stop, done := e.stop, e.done
	e.mu.Unlock()

	close(stop)
	<-done
	log.Info("proctor engine stopped")
}

// Dispose stops the loop and releases resources. Safe from any state;
// subsequent Starts return ErrDisposed.
func (e *Engine) Dispose() {
	e.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
}

// IsRunning reports whether the loop is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	frameTicker := time.NewTicker(e.interval())
	telemetryTicker := time.NewTicker(e.cfg.TelemetryInterval)
	defer frameTicker.Stop()
	defer telemetryTicker.Stop()

	var framesInWindow uint64
	windowStart := time.Now()

	for {
		select {
		case <-stop:
			return

		case <-frameTicker.C:
			started := time.Now()
			if e.tick(started) {
				framesInWindow++
			}
			elapsed := time.Since(started)

			if fps, changed := e.adapt(elapsed); changed {
				frameTicker.Reset(time.Second / time.Duration(fps))
				log.Debug("adaptive frame rate adjusted", "target_fps", fps, "last_proc", elapsed)
			}

		case <-telemetryTicker.C:
			windowSecs := time.Since(windowStart).Seconds()
			e.reportTelemetry(framesInWindow, windowSecs)
			framesInWindow = 0
			windowStart = time.Now()
		}
	}
}

// tick runs one capture -> estimate -> filter -> detect -> alert pass.
// Every failure is reported and swallowed; the loop never stops because of
// a single bad frame.
func (e *Engine) tick(now time.Time) (processed bool) {
	defer func() {
		if r := recover(); r != nil {
			e.reportError(fmt.Errorf("engine: tick panic: %v", r))
		}
	}()

	vs, ok := e.acquire(now)
	if !ok {
		e.mu.Lock()
		e.droppedFrames++
		e.mu.Unlock()
		return false
	}

	filtered := e.deps.Filter.Process(vs)

	e.mu.Lock()
	questionID := e.questionID
	e.framesProcessed++
	e.mu.Unlock()

	flags := e.deps.Detector.ProcessVisionSignals(filtered, questionID)

	if e.deps.Alerts != nil {
		e.deps.Alerts.ObserveEyesOff(!filtered.EyesOnScreen, filtered.Timestamp)
		for _, f := range flags {
			e.deps.Alerts.ProcessFlag(f)
		}
	}
	if len(flags) > 0 && e.OnFlags != nil {
		e.OnFlags(flags)
	}

	if e.OnSignalsUpdate != nil {
		e.OnSignalsUpdate(filtered)
	}
	return true
}

// acquire obtains one VisionSignals, either from the remote provider or by
// running the estimators over a captured frame.
func (e *Engine) acquire(now time.Time) (signals.VisionSignals, bool) {
	if e.deps.Signals != nil {
		vs, ok := e.deps.Signals.Latest()
		if !ok {
			return signals.VisionSignals{}, false
		}
		e.mu.Lock()
		stale := !vs.Timestamp.After(e.lastSignalsAt)
		if !stale {
			e.lastSignalsAt = vs.Timestamp
		}
		e.mu.Unlock()
		return vs, !stale
	}

	frame, err := e.deps.Video.CaptureJPEG()
	if err != nil {
		e.reportError(fmt.Errorf("engine: frame capture: %w", err))
		return signals.VisionSignals{}, false
	}

	vs := signals.VisionSignals{Timestamp: now}

	var face FaceResult
	if est := e.deps.Estimators.Face; est != nil {
		face, err = est.EstimateFace(frame)
		if err != nil {
			e.reportError(fmt.Errorf("engine: face estimation: %w", err))
		} else {
			vs.FaceDetected = face.Detected
			vs.Landmarks = face.Landmarks
		}
	}
	if est := e.deps.Estimators.Gaze; est != nil {
		gaze, err := est.EstimateGaze(frame, face)
		if err != nil {
			e.reportError(fmt.Errorf("engine: gaze estimation: %w", err))
		} else {
			vs.Gaze = gaze.Vector
			vs.EyesOnScreen = gaze.EyesOnScreen
		}
	}
	if est := e.deps.Estimators.HeadPose; est != nil {
		pose, err := est.EstimateHeadPose(frame, face)
		if err != nil {
			e.reportError(fmt.Errorf("engine: head pose estimation: %w", err))
		} else {
			vs.HeadPose = pose
		}
	}
	if est := e.deps.Estimators.Environment; est != nil {
		env, err := est.EstimateEnvironment(frame)
		if err != nil {
			e.reportError(fmt.Errorf("engine: environment estimation: %w", err))
		} else {
			vs.Environment = env
		}
	}

	return vs, true
}

// adapt adjusts the target FPS from recent processing times. Lowers the rate
// when the average approaches the frame budget, raises it when there is
// ample headroom. Returns the (possibly new) FPS and whether it changed.
func (e *Engine) adapt(procTime time.Duration) (int, bool) {
	e.procTimes = append(e.procTimes, procTime)
	if len(e.procTimes) > e.cfg.ProcTimeWindow {
		e.procTimes = e.procTimes[1:]
	}
	if !e.cfg.Adaptive || len(e.procTimes) < e.cfg.ProcTimeWindow/2 {
		return e.targetFPS, false
	}

	var sum time.Duration
	for _, t := range e.procTimes {
		sum += t
	}
	avg := sum / time.Duration(len(e.procTimes))

	e.mu.Lock()
	prev := e.targetFPS
	budget := time.Second / time.Duration(prev)
	switch {
	case avg >= budget*8/10:
		e.targetFPS = clampFPS(prev - 5)
	case avg <= budget*4/10:
		e.targetFPS = clampFPS(prev + 5)
	}
	cur := e.targetFPS
	e.mu.Unlock()

	return cur, cur != prev
}

func clampFPS(fps int) int {
	if fps < MinFPS {
		return MinFPS
	}
	if fps > MaxFPS {
		return MaxFPS
	}
	return fps
}

// TargetFPS returns the current adaptive target.
func (e *Engine) TargetFPS() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.targetFPS
}

func (e *Engine) interval() time.Duration {
	return time.Second / time.Duration(e.TargetFPS())
}

func (e *Engine) reportTelemetry(frames uint64, windowSecs float64) {
	if e.OnPerformanceUpdate == nil {
		return
	}

	var avg time.Duration
	if len(e.procTimes) > 0 {
		var sum time.Duration
		for _, t := range e.procTimes {
			sum += t
		}
		avg = sum / time.Duration(len(e.procTimes))
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	e.mu.Lock()
	m := Metrics{
		TargetFPS:       e.targetFPS,
		AvgProcessing:   avg,
		DroppedFrames:   e.droppedFrames,
		FramesProcessed: e.framesProcessed,
		HeapAllocBytes:  mem.HeapAlloc,
		GoroutineCount:  runtime.NumGoroutine(),
	}
	e.mu.Unlock()

	if windowSecs > 0 {
		m.ActualFPS = float64(frames) / windowSecs
	}
	e.OnPerformanceUpdate(m)
}

func (e *Engine) reportError(err error) {
	log.Warn("frame fault", "err", err)
	if e.OnError != nil {
		e.OnError(err)
	}
}
