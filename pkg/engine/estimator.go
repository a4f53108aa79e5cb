package engine

import "github.com/sayantanmandal1/eyesonscreen/pkg/signals"

// VideoSource captures the current frame as encoded JPEG bytes.
type VideoSource interface {
	CaptureJPEG() ([]byte, error)
}

// FaceResult is the output of a face/landmark estimator for one frame.
type FaceResult struct {
	Detected  bool
	Landmarks []signals.Point3
}

// GazeResult is the output of a gaze estimator for one frame.
type GazeResult struct {
	Vector       signals.GazeVector
	EyesOnScreen bool
}

// FaceEstimator maps a frame to face presence and landmarks.
type FaceEstimator interface {
	EstimateFace(jpeg []byte) (FaceResult, error)
}

// GazeEstimator maps a frame (plus the face result) to a gaze vector.
type GazeEstimator interface {
	EstimateGaze(jpeg []byte, face FaceResult) (GazeResult, error)
}

// HeadPoseEstimator maps a frame (plus the face result) to head orientation.
type HeadPoseEstimator interface {
	EstimateHeadPose(jpeg []byte, face FaceResult) (signals.HeadPose, error)
}

// EnvironmentEstimator maps a frame to scene-level scores.
type EnvironmentEstimator interface {
	EstimateEnvironment(jpeg []byte) (signals.EnvironmentScore, error)
}

// Estimators bundles the external vision estimators a camera-backed session
// uses. Nil members simply leave their channel at zero confidence.
type Estimators struct {
	Face        FaceEstimator
	Gaze        GazeEstimator
	HeadPose    HeadPoseEstimator
	Environment EnvironmentEstimator
}

// SignalsProvider supplies already-assembled vision signals, used when the
// estimators run remotely (e.g. in the candidate's browser) and deliver
// measurements over the session channel.
type SignalsProvider interface {
	// Latest returns the most recent signals and whether any exist yet.
	Latest() (signals.VisionSignals, bool)
}
