package detector

import (
	"math"
	"sync"
	"time"

	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

// Detector is a stateful rule engine. One call processes one filtered frame
// (or one injected interruption) and returns zero or more flags. Calls are
// serialized; browser-event flags may interleave with frame flags but each
// is a single non-overlapping call.
type Detector struct {
	mu       sync.Mutex
	cfg      Config
	st       state
	disposed bool
	cancels  []func()

	// OnBrowserEventFlag, when set, receives flags raised from injected
	// interruption events, in addition to the HandleInterruption return.
	OnBrowserEventFlag func(signals.FlagEvent)
}

// New creates a detector with the given rule thresholds.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// ProcessVisionSignals evaluates every per-frame rule against one filtered
// sample. The sample's own timestamp is the rule clock, so replayed or
// simulated sessions behave identically to live ones.
func (d *Detector) ProcessVisionSignals(fs signals.FilteredSignals, questionID string) []signals.FlagEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return nil
	}

	now := fs.Timestamp
	var flags []signals.FlagEvent

	flags = appendIf(flags, d.checkEyesOff(fs, now), questionID)
	flags = appendIf(flags, d.checkHeadPose(fs, now), questionID)
	flags = appendIf(flags, d.checkShadow(fs, now), questionID)
	flags = append(flags, d.checkFaceMissing(fs, now, questionID)...)
	flags = appendIf(flags, d.checkSecondFace(fs, now), questionID)
	flags = appendIf(flags, d.checkDeviceObject(fs, now), questionID)
	flags = appendIf(flags, d.checkDownGlance(fs, now), questionID)
	flags = appendIf(flags, d.checkCorrelation(now), questionID)

	d.st.lastYaw = fs.HeadPose.Yaw
	d.st.hasLastYaw = true

	return flags
}

func appendIf(flags []signals.FlagEvent, f *signals.FlagEvent, questionID string) []signals.FlagEvent {
	if f == nil {
		return flags
	}
	f.QuestionID = questionID
	return append(flags, *f)
}

func (d *Detector) checkEyesOff(fs signals.FilteredSignals, now time.Time) *signals.FlagEvent {
	violating := !fs.EyesOnScreen || fs.Confidence.Gaze < d.cfg.EyesOff.MinGazeConfidence
	if !d.st.eyesOff.observe(violating, now, d.cfg.EyesOff.Duration) {
		return nil
	}
	f := signals.NewFlag(signals.FlagEyesOff, signals.SeveritySoft, now, fs.Confidence.Gaze, signals.EyesOffDetails{
		GazeConfidence: fs.Confidence.Gaze,
		Duration:       d.cfg.EyesOff.Duration,
	})
	return &f
}

func (d *Detector) checkHeadPose(fs signals.FilteredSignals, now time.Time) *signals.FlagEvent {
	violating := math.Abs(fs.HeadPose.Yaw) > d.cfg.HeadPose.YawMax ||
		math.Abs(fs.HeadPose.Pitch) > d.cfg.HeadPose.PitchMax
	if !d.st.headPose.observe(violating, now, d.cfg.HeadPose.Duration) {
		return nil
	}
	f := signals.NewFlag(signals.FlagHeadPose, signals.SeveritySoft, now, fs.Confidence.HeadPose, signals.HeadPoseDetails{
		Yaw:   fs.HeadPose.Yaw,
		Pitch: fs.HeadPose.Pitch,
	})
	return &f
}

func (d *Detector) checkShadow(fs signals.FilteredSignals, now time.Time) *signals.FlagEvent {
	// ShadowStability here carries instability: higher means more anomalous.
	violating := fs.Environment.ShadowStability > d.cfg.Shadow.Threshold
	if !d.st.shadow.observe(violating, now, d.cfg.Shadow.Duration) {
		return nil
	}
	f := signals.NewFlag(signals.FlagShadowAnomaly, signals.SeveritySoft, now, fs.Confidence.Environment, signals.ShadowDetails{
		Instability: fs.Environment.ShadowStability,
		Duration:    d.cfg.Shadow.Duration,
	})
	return &f
}

// checkFaceMissing runs both the direct face-lost timer and the occlusion
// timer; both emit FACE_MISSING, distinguished by their details payload.
func (d *Detector) checkFaceMissing(fs signals.FilteredSignals, now time.Time, questionID string) []signals.FlagEvent {
	var flags []signals.FlagEvent

	if d.st.faceMissing.observe(!fs.FaceDetected, now, d.cfg.FaceMissing.Duration) {
		f := signals.NewFlag(signals.FlagFaceMissing, signals.SeveritySoft, now, 1, signals.FaceMissingDetails{})
		f.QuestionID = questionID
		flags = append(flags, f)
	}

	visible, ratio := occlusion(fs)
	occluded := fs.FaceDetected && ratio > d.cfg.FaceMissing.OcclusionRatio
	if d.st.occlusion.observe(occluded, now, d.cfg.FaceMissing.OcclusionDuration) {
		f := signals.NewFlag(signals.FlagFaceMissing, signals.SeveritySoft, now, fs.Confidence.Landmarks, signals.FaceMissingDetails{
			OcclusionRatio:    ratio,
			VisibleLandmarks:  visible,
			ExpectedLandmarks: len(fs.Landmarks),
		})
		f.QuestionID = questionID
		flags = append(flags, f)
	}

	return flags
}

// occlusion returns how many landmarks are usable and the fraction missing.
// Estimators that emit fewer points than the full mesh are judged against
// their own count, not the mesh size.
func occlusion(fs signals.FilteredSignals) (visible int, ratio float64) {
	if len(fs.Landmarks) == 0 {
		return 0, 0
	}
	for _, p := range fs.Landmarks {
		if p.Valid() && (p.X != 0 || p.Y != 0 || p.Z != 0) {
			visible++
		}
	}
	return visible, 1 - float64(visible)/float64(len(fs.Landmarks))
}

func (d *Detector) checkSecondFace(fs signals.FilteredSignals, now time.Time) *signals.FlagEvent {
	violating := fs.Environment.SecondaryFaces > d.cfg.SecondFace.Threshold
	if !frameRule(&d.st.secondFaceFrames, violating, d.cfg.SecondFace.Frames) {
		return nil
	}
	f := signals.NewFlag(signals.FlagSecondFace, signals.SeverityHard, now, fs.Environment.SecondaryFaces, signals.PresenceDetails{
		Score:             fs.Environment.SecondaryFaces,
		ConsecutiveFrames: d.cfg.SecondFace.Frames,
	})
	return &f
}

func (d *Detector) checkDeviceObject(fs signals.FilteredSignals, now time.Time) *signals.FlagEvent {
	violating := fs.Environment.DeviceLikeObjects > d.cfg.DeviceObject.Threshold
	if !frameRule(&d.st.deviceObjectFrames, violating, d.cfg.DeviceObject.Frames) {
		return nil
	}
	f := signals.NewFlag(signals.FlagDeviceObject, signals.SeverityHard, now, fs.Environment.DeviceLikeObjects, signals.PresenceDetails{
		Score:             fs.Environment.DeviceLikeObjects,
		ConsecutiveFrames: d.cfg.DeviceObject.Frames,
	})
	return &f
}

func (d *Detector) checkDownGlance(fs signals.FilteredSignals, now time.Time) *signals.FlagEvent {
	cutoff := now.Add(-d.cfg.DownGlance.Window)
	kept := d.st.downGlances[:0]
	for _, t := range d.st.downGlances {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	d.st.downGlances = kept

	if fs.HeadPose.Pitch < d.cfg.DownGlance.PitchThreshold {
		d.st.downGlances = append(d.st.downGlances, now)
	}

	if len(d.st.downGlances) < d.cfg.DownGlance.Count {
		return nil
	}
	glances := len(d.st.downGlances)
	d.st.downGlances = d.st.downGlances[:0]

	f := signals.NewFlag(signals.FlagDownGlance, signals.SeveritySoft, now, fs.Confidence.HeadPose, signals.DownGlanceDetails{
		Glances: glances,
		Window:  d.cfg.DownGlance.Window,
	})
	return &f
}

// ResetState zeroes all timers, counters, and buffers without touching the
// configuration.
func (d *Detector) ResetState() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.st = state{}
}

// UpdateConfig merges a partial configuration update. State is preserved;
// rules re-evaluate against the new thresholds on the next call.
func (d *Detector) UpdateConfig(p Patch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.apply(p)
}

// Config returns a copy of the current configuration.
func (d *Detector) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Dispose detaches all interruption subscriptions. Safe to call repeatedly;
// subsequent processing calls are no-ops.
func (d *Detector) Dispose() {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	d.disposed = true
	cancels := d.cancels
	d.cancels = nil
	d.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
