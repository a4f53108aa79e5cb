// Package signals defines the measurement and event types that flow through
// the proctoring pipeline: raw per-frame vision measurements, their filtered
// counterparts, and the discrete flag events the detector emits.
package signals

import (
	"math"
	"time"
)

// LandmarkCount is the number of face-mesh points a full estimator produces.
// Adapters that emit fewer points (e.g. box detectors with five keypoints)
// are still accepted; confidence scoring works on whatever is present.
const LandmarkCount = 468

// Point3 is a single landmark coordinate.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Valid reports whether all coordinates are finite.
func (p Point3) Valid() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z)
}

// Magnitude returns the Euclidean length of the point treated as a vector.
func (p Point3) Magnitude() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// HeadPose holds estimated head orientation in degrees.
type HeadPose struct {
	Yaw        float64 `json:"yaw"`
	Pitch      float64 `json:"pitch"`
	Roll       float64 `json:"roll"`
	Confidence float64 `json:"confidence"`
}

// GazeVector is the estimated gaze direction with estimator confidence.
type GazeVector struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Confidence float64 `json:"confidence"`
}

// Magnitude returns the Euclidean length of the gaze direction.
func (g GazeVector) Magnitude() float64 {
	return math.Sqrt(g.X*g.X + g.Y*g.Y + g.Z*g.Z)
}

// EnvironmentScore holds the scene-level estimator outputs, each 0-1.
type EnvironmentScore struct {
	Lighting          float64 `json:"lighting"`
	ShadowStability   float64 `json:"shadow_stability"`
	SecondaryFaces    float64 `json:"secondary_faces"`
	DeviceLikeObjects float64 `json:"device_like_objects"`
}

// VisionSignals is one frame's raw measurement as produced by the external
// estimators. It is immutable once built; the pipeline owns it for the
// duration of a single tick.
type VisionSignals struct {
	Timestamp    time.Time        `json:"timestamp"`
	FaceDetected bool             `json:"face_detected"`
	Landmarks    []Point3         `json:"landmarks,omitempty"`
	HeadPose     HeadPose         `json:"head_pose"`
	Gaze         GazeVector       `json:"gaze"`
	EyesOnScreen bool             `json:"eyes_on_screen"`
	Environment  EnvironmentScore `json:"environment"`
}

// Confidence holds the per-channel and blended confidence scores, all 0-1.
type Confidence struct {
	Overall     float64 `json:"overall"`
	Gaze        float64 `json:"gaze"`
	HeadPose    float64 `json:"head_pose"`
	Landmarks   float64 `json:"landmarks"`
	Environment float64 `json:"environment"`
}

// Stability holds per-channel stability scores derived from recent history.
type Stability struct {
	Gaze     float64 `json:"gaze"`
	HeadPose float64 `json:"head_pose"`
	Lighting float64 `json:"lighting"`
}

// FilteredSignals is a VisionSignals after temporal filtering, carrying the
// derived confidence and stability blocks. It is never persisted beyond the
// current cycle except inside the filter's own rolling buffers.
type FilteredSignals struct {
	VisionSignals
	Confidence Confidence `json:"confidence"`
	Stability  Stability  `json:"stability"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
