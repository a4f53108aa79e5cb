package signals

import (
	"time"

	"github.com/google/uuid"
)

// FlagType identifies which rule produced a flag.
type FlagType string

// The eight flag kinds the detector can emit.
const (
	FlagEyesOff       FlagType = "EYES_OFF"
	FlagHeadPose      FlagType = "HEAD_POSE"
	FlagTabBlur       FlagType = "TAB_BLUR"
	FlagSecondFace    FlagType = "SECOND_FACE"
	FlagDeviceObject  FlagType = "DEVICE_OBJECT"
	FlagShadowAnomaly FlagType = "SHADOW_ANOMALY"
	FlagFaceMissing   FlagType = "FACE_MISSING"
	FlagDownGlance    FlagType = "DOWN_GLANCE"
)

// Severity classifies how a flag should be surfaced to the user.
type Severity string

const (
	// SeveritySoft is advisory: toast-style, debounced longer.
	SeveritySoft Severity = "soft"
	// SeverityHard is serious: modal, shorter debounce.
	SeverityHard Severity = "hard"
)

// FlagDetails is the per-type payload attached to a FlagEvent. Each flag
// type carries only the fields that type actually produces.
type FlagDetails interface {
	flagDetails()
}

// EyesOffDetails accompanies EYES_OFF flags.
type EyesOffDetails struct {
	GazeConfidence float64       `json:"gaze_confidence"`
	Duration       time.Duration `json:"duration"`
}

// HeadPoseDetails accompanies HEAD_POSE flags, including the hard-severity
// external-monitor variant produced by the yaw/cursor correlation rule.
type HeadPoseDetails struct {
	Yaw                      float64 `json:"yaw"`
	Pitch                    float64 `json:"pitch"`
	Correlation              float64 `json:"correlation,omitempty"`
	SuspectedExternalMonitor bool    `json:"suspected_external_monitor,omitempty"`
}

// FaceMissingDetails accompanies FACE_MISSING flags. OcclusionRatio is zero
// for the direct face-lost variant.
type FaceMissingDetails struct {
	OcclusionRatio    float64 `json:"occlusion_ratio,omitempty"`
	VisibleLandmarks  int     `json:"visible_landmarks,omitempty"`
	ExpectedLandmarks int     `json:"expected_landmarks,omitempty"`
}

// PresenceDetails accompanies SECOND_FACE and DEVICE_OBJECT flags.
type PresenceDetails struct {
	Score             float64 `json:"score"`
	ConsecutiveFrames int     `json:"consecutive_frames"`
}

// ShadowDetails accompanies SHADOW_ANOMALY flags.
type ShadowDetails struct {
	Instability float64       `json:"instability"`
	Duration    time.Duration `json:"duration"`
}

// DownGlanceDetails accompanies DOWN_GLANCE flags.
type DownGlanceDetails struct {
	Glances int           `json:"glances"`
	Window  time.Duration `json:"window"`
}

// InterruptionDetails accompanies TAB_BLUR flags raised from browser or
// input interruption events.
type InterruptionDetails struct {
	Event  string `json:"event"`
	Detail string `json:"detail,omitempty"`
}

func (EyesOffDetails) flagDetails()      {}
func (HeadPoseDetails) flagDetails()     {}
func (FaceMissingDetails) flagDetails()  {}
func (PresenceDetails) flagDetails()     {}
func (ShadowDetails) flagDetails()       {}
func (DownGlanceDetails) flagDetails()   {}
func (InterruptionDetails) flagDetails() {}

// FlagEvent is a discrete, timestamped record that a rule's violation
// condition was met. Immutable once created.
type FlagEvent struct {
	ID           string      `json:"id"`
	Timestamp    time.Time   `json:"timestamp"`
	EndTimestamp time.Time   `json:"end_timestamp,omitempty"`
	Type         FlagType    `json:"type"`
	Severity     Severity    `json:"severity"`
	Confidence   float64     `json:"confidence"`
	Details      FlagDetails `json:"details,omitempty"`
	QuestionID   string      `json:"question_id,omitempty"`
}

// NewFlag builds a FlagEvent with a fresh unique ID.
func NewFlag(t FlagType, sev Severity, ts time.Time, confidence float64, details FlagDetails) FlagEvent {
	return FlagEvent{
		ID:         uuid.NewString(),
		Timestamp:  ts,
		Type:       t,
		Severity:   sev,
		Confidence: confidence,
		Details:    details,
	}
}
