package filter

import (
	"math"
	"sync"

	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

// maxOutlierDiscount is the largest confidence penalty an outlier sample can
// cause, applied proportionally to outlier severity.
const maxOutlierDiscount = 0.5

// System converts one raw VisionSignals into a FilteredSignals per call.
// It owns all rolling filter state; callers never mutate it directly.
type System struct {
	mu  sync.Mutex
	cfg Config

	landmarks []kalman1D // 3 scalars per landmark, sized lazily

	gazeKalman [3]kalman1D
	gazeEMA    [3]ema
	poseKalman [3]kalman1D
	poseEMA    [3]ema

	gazeOutliers outlierDetector
	poseOutliers outlierDetector

	lightingEMA ema
	shadowEMA   ema

	history []historySample
}

// historySample is the slice of a filtered frame the stability scores need.
type historySample struct {
	gaze     [3]float64
	pose     [3]float64
	lighting float64
}

// New creates a filter system with the given configuration.
func New(cfg Config) *System {
	s := &System{}
	s.init(cfg)
	return s
}

func (s *System) init(cfg Config) {
	s.cfg = cfg
	s.landmarks = nil
	for i := 0; i < 3; i++ {
		s.gazeKalman[i] = newKalman1D(cfg.ProcessNoise, cfg.MeasurementNoise)
		s.poseKalman[i] = newKalman1D(cfg.ProcessNoise, cfg.MeasurementNoise)
		s.gazeEMA[i] = newEMA(cfg.SmoothingAlpha)
		s.poseEMA[i] = newEMA(cfg.SmoothingAlpha)
	}
	s.gazeOutliers = newOutlierDetector(cfg.OutlierWindow, cfg.ZScoreThreshold, cfg.IQRMultiplier)
	s.poseOutliers = newOutlierDetector(cfg.OutlierWindow, cfg.ZScoreThreshold, cfg.IQRMultiplier)
	s.lightingEMA = newEMA(cfg.SmoothingAlpha)
	s.shadowEMA = newEMA(cfg.SmoothingAlpha)
	s.history = nil
}

// Process filters one frame. It never panics on malformed input; NaN or
// missing channels degrade that channel's confidence to zero instead.
func (s *System) Process(raw signals.VisionSignals) signals.FilteredSignals {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := signals.FilteredSignals{VisionSignals: raw}

	out.Landmarks = s.filterLandmarks(raw)
	gazeSeverity := s.filterGaze(&out)
	poseSeverity := s.filterPose(&out)
	s.filterEnvironment(&out)

	out.Confidence = s.confidence(raw, out, gazeSeverity, poseSeverity)
	s.pushHistory(out)
	out.Stability = s.stability()

	return out
}

// filterLandmarks runs each landmark scalar through its own Kalman filter.
// Without a detected face the raw landmarks pass through untouched.
func (s *System) filterLandmarks(raw signals.VisionSignals) []signals.Point3 {
	if !raw.FaceDetected || len(raw.Landmarks) == 0 {
		return raw.Landmarks
	}

	need := len(raw.Landmarks) * 3
	if len(s.landmarks) != need {
		s.landmarks = make([]kalman1D, need)
		for i := range s.landmarks {
			s.landmarks[i] = newKalman1D(s.cfg.ProcessNoise, s.cfg.MeasurementNoise)
		}
	}

	filtered := make([]signals.Point3, len(raw.Landmarks))
	for i, p := range raw.Landmarks {
		filtered[i] = signals.Point3{
			X: s.landmarks[i*3].update(p.X),
			Y: s.landmarks[i*3+1].update(p.Y),
			Z: s.landmarks[i*3+2].update(p.Z),
		}
	}
	return filtered
}

func (s *System) filterGaze(out *signals.FilteredSignals) float64 {
	raw := out.VisionSignals.Gaze
	severity := s.gazeOutliers.observe(raw.Magnitude())

	out.Gaze.X = s.gazeEMA[0].update(s.gazeKalman[0].update(raw.X))
	out.Gaze.Y = s.gazeEMA[1].update(s.gazeKalman[1].update(raw.Y))
	out.Gaze.Z = s.gazeEMA[2].update(s.gazeKalman[2].update(raw.Z))
	out.Gaze.Confidence = raw.Confidence
	return severity
}

func (s *System) filterPose(out *signals.FilteredSignals) float64 {
	raw := out.VisionSignals.HeadPose
	mag := math.Sqrt(raw.Yaw*raw.Yaw + raw.Pitch*raw.Pitch + raw.Roll*raw.Roll)
	severity := s.poseOutliers.observe(mag)

	out.HeadPose.Yaw = s.poseEMA[0].update(s.poseKalman[0].update(raw.Yaw))
	out.HeadPose.Pitch = s.poseEMA[1].update(s.poseKalman[1].update(raw.Pitch))
	out.HeadPose.Roll = s.poseEMA[2].update(s.poseKalman[2].update(raw.Roll))
	out.HeadPose.Confidence = raw.Confidence
	return severity
}

func (s *System) filterEnvironment(out *signals.FilteredSignals) {
	out.Environment.Lighting = s.lightingEMA.update(out.VisionSignals.Environment.Lighting)
	out.Environment.ShadowStability = s.shadowEMA.update(out.VisionSignals.Environment.ShadowStability)
}

func (s *System) confidence(raw signals.VisionSignals, out signals.FilteredSignals, gazeSeverity, poseSeverity float64) signals.Confidence {
	var c signals.Confidence

	c.Landmarks = landmarkConfidence(raw)
	c.Gaze = gazeConfidence(raw.Gaze, out.Gaze) * (1 - maxOutlierDiscount*gazeSeverity)
	c.HeadPose = headPoseConfidence(raw.HeadPose) * (1 - maxOutlierDiscount*poseSeverity)
	c.Environment = environmentConfidence(out.Environment)

	c.Overall = weightGaze*c.Gaze +
		weightHeadPose*c.HeadPose +
		weightLandmarks*c.Landmarks +
		weightEnvironment*c.Environment
	return c
}

// landmarkConfidence is the fraction of landmarks with finite coordinates.
func landmarkConfidence(raw signals.VisionSignals) float64 {
	if !raw.FaceDetected || len(raw.Landmarks) == 0 {
		return 0
	}
	valid := 0
	for _, p := range raw.Landmarks {
		if p.Valid() {
			valid++
		}
	}
	return float64(valid) / float64(len(raw.Landmarks))
}

// gazeConfidence scales the raw estimator confidence by the clamped
// magnitude of the filtered vector; a collapsed vector means the estimator
// had nothing usable.
func gazeConfidence(raw, filtered signals.GazeVector) float64 {
	if !finite(raw.Confidence) || !finite(raw.Magnitude()) || !finite(filtered.Magnitude()) {
		return 0
	}
	return clamp(raw.Confidence, 0, 1) * clamp(filtered.Magnitude(), 0, 1)
}

// headPoseConfidence penalizes poses beyond 45 degrees on any axis, fading
// linearly to zero at 90 degrees.
func headPoseConfidence(pose signals.HeadPose) float64 {
	if !finite(pose.Yaw) || !finite(pose.Pitch) || !finite(pose.Confidence) {
		return 0
	}
	worst := math.Max(math.Abs(pose.Yaw), math.Abs(pose.Pitch))
	penalty := 1.0
	if worst > 45 {
		penalty = clamp(1-(worst-45)/45, 0, 1)
	}
	return clamp(pose.Confidence, 0, 1) * penalty
}

// environmentConfidence blends lighting near mid-range, shadow calm, and a
// penalty for secondary faces or device-like objects in view.
// ShadowStability carries instability (0 = stable, 1 = jumping), so it is
// inverted before blending.
func environmentConfidence(env signals.EnvironmentScore) float64 {
	if !finite(env.Lighting) || !finite(env.ShadowStability) {
		return 0
	}
	lightingMid := 1 - 2*math.Abs(env.Lighting-0.5)
	shadowCalm := 1 - clamp(env.ShadowStability, 0, 1)
	objectPenalty := 1 - clamp(math.Max(env.SecondaryFaces, env.DeviceLikeObjects), 0, 1)
	return clamp(0.4*lightingMid+0.4*shadowCalm+0.2*objectPenalty, 0, 1)
}

func (s *System) pushHistory(out signals.FilteredSignals) {
	s.history = append(s.history, historySample{
		gaze:     [3]float64{out.Gaze.X, out.Gaze.Y, out.Gaze.Z},
		pose:     [3]float64{out.HeadPose.Yaw, out.HeadPose.Pitch, out.HeadPose.Roll},
		lighting: out.Environment.Lighting,
	})
	if len(s.history) > s.cfg.StabilityWindow {
		s.history = s.history[1:]
	}
}

// stability scores each channel from mean step-to-step variation across the
// buffered samples: max(0, 1 - variation*scale). Fewer than three samples
// score zero.
func (s *System) stability() signals.Stability {
	if len(s.history) < 3 {
		return signals.Stability{}
	}

	var gazeVar, poseVar, lightVar float64
	pairs := float64(len(s.history) - 1)
	for i := 1; i < len(s.history); i++ {
		prev, cur := s.history[i-1], s.history[i]
		gazeVar += vecDistance(prev.gaze, cur.gaze)
		poseVar += vecDistance(prev.pose, cur.pose) / 90 // normalize degrees
		lightVar += math.Abs(cur.lighting - prev.lighting)
	}

	scale := s.cfg.StabilityScale
	return signals.Stability{
		Gaze:     math.Max(0, 1-(gazeVar/pairs)*scale),
		HeadPose: math.Max(0, 1-(poseVar/pairs)*scale),
		Lighting: math.Max(0, 1-(lightVar/pairs)*scale),
	}
}

// Reset clears all filter and buffer state, keeping the configuration.
func (s *System) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init(s.cfg)
}

// UpdateConfig replaces the parameters and reinitializes every filter;
// no state carries across a config change.
func (s *System) UpdateConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init(cfg)
}

func vecDistance(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
