// Package detector applies independent rule state machines to filtered
// vision signals and injected interruption events, emitting flag events.
// Each sustained violation fires exactly once until it clears.
package detector

import "time"

// EyesOffRule flags gaze leaving the screen for a sustained duration.
type EyesOffRule struct {
	MinGazeConfidence float64       `koanf:"min_gaze_confidence" json:"min_gaze_confidence"`
	Duration          time.Duration `koanf:"duration" json:"duration"`
}

// HeadPoseRule flags yaw or pitch beyond limits for a sustained duration.
// Angles are degrees.
type HeadPoseRule struct {
	YawMax   float64       `koanf:"yaw_max" json:"yaw_max"`
	PitchMax float64       `koanf:"pitch_max" json:"pitch_max"`
	Duration time.Duration `koanf:"duration" json:"duration"`
}

// ShadowRule flags sustained shadow instability.
type ShadowRule struct {
	Threshold float64       `koanf:"threshold" json:"threshold"`
	Duration  time.Duration `koanf:"duration" json:"duration"`
}

// FaceMissingRule flags a lost face or heavy landmark occlusion.
type FaceMissingRule struct {
	Duration          time.Duration `koanf:"duration" json:"duration"`
	OcclusionRatio    float64       `koanf:"occlusion_ratio" json:"occlusion_ratio"`
	OcclusionDuration time.Duration `koanf:"occlusion_duration" json:"occlusion_duration"`
}

// PresenceRule flags an environment score held above a threshold for a
// number of consecutive frames. Used for second faces and device objects.
type PresenceRule struct {
	Threshold float64 `koanf:"threshold" json:"threshold"`
	Frames    int     `koanf:"frames" json:"frames"`
}

// DownGlanceRule flags repeated downward glances within a rolling window.
type DownGlanceRule struct {
	PitchThreshold float64       `koanf:"pitch_threshold" json:"pitch_threshold"` // degrees, below = looking down
	Window         time.Duration `koanf:"window" json:"window"`
	Count          int           `koanf:"count" json:"count"`
}

// CorrelationRule flags a suspected external monitor when head yaw and
// cursor x-position move together.
type CorrelationRule struct {
	Window     time.Duration `koanf:"window" json:"window"`
	MinSamples int           `koanf:"min_samples" json:"min_samples"`
	Threshold  float64       `koanf:"threshold" json:"threshold"` // |Pearson r| above this fires
}

// Config holds every rule's thresholds.
type Config struct {
	EyesOff      EyesOffRule     `koanf:"eyes_off" json:"eyes_off"`
	HeadPose     HeadPoseRule    `koanf:"head_pose" json:"head_pose"`
	Shadow       ShadowRule      `koanf:"shadow" json:"shadow"`
	FaceMissing  FaceMissingRule `koanf:"face_missing" json:"face_missing"`
	SecondFace   PresenceRule    `koanf:"second_face" json:"second_face"`
	DeviceObject PresenceRule    `koanf:"device_object" json:"device_object"`
	DownGlance   DownGlanceRule  `koanf:"down_glance" json:"down_glance"`
	Correlation  CorrelationRule `koanf:"correlation" json:"correlation"`
}

// DefaultConfig returns the recommended detection thresholds.
func DefaultConfig() Config {
	return Config{
		EyesOff: EyesOffRule{
			MinGazeConfidence: 0.3,
			Duration:          500 * time.Millisecond,
		},
		HeadPose: HeadPoseRule{
			YawMax:   30,
			PitchMax: 25,
			Duration: 300 * time.Millisecond,
		},
		Shadow: ShadowRule{
			Threshold: 0.6,
			Duration:  800 * time.Millisecond,
		},
		FaceMissing: FaceMissingRule{
			Duration:          1000 * time.Millisecond,
			OcclusionRatio:    0.3,
			OcclusionDuration: 500 * time.Millisecond,
		},
		SecondFace: PresenceRule{
			Threshold: 0.5,
			Frames:    5,
		},
		DeviceObject: PresenceRule{
			Threshold: 0.5,
			Frames:    3,
		},
		DownGlance: DownGlanceRule{
			PitchThreshold: -20,
			Window:         10 * time.Second,
			Count:          3,
		},
		Correlation: CorrelationRule{
			Window:     10 * time.Second,
			MinSamples: 15,
			Threshold:  0.8,
		},
	}
}

// Patch is a partial configuration update: non-nil rules replace the
// detector's current values for that rule, everything else is kept.
type Patch struct {
	EyesOff      *EyesOffRule     `json:"eyes_off,omitempty"`
	HeadPose     *HeadPoseRule    `json:"head_pose,omitempty"`
	Shadow       *ShadowRule      `json:"shadow,omitempty"`
	FaceMissing  *FaceMissingRule `json:"face_missing,omitempty"`
	SecondFace   *PresenceRule    `json:"second_face,omitempty"`
	DeviceObject *PresenceRule    `json:"device_object,omitempty"`
	DownGlance   *DownGlanceRule  `json:"down_glance,omitempty"`
	Correlation  *CorrelationRule `json:"correlation,omitempty"`
}

func (c *Config) apply(p Patch) {
	if p.EyesOff != nil {
		c.EyesOff = *p.EyesOff
	}
	if p.HeadPose != nil {
		c.HeadPose = *p.HeadPose
	}
	if p.Shadow != nil {
		c.Shadow = *p.Shadow
	}
	if p.FaceMissing != nil {
		c.FaceMissing = *p.FaceMissing
	}
	if p.SecondFace != nil {
		c.SecondFace = *p.SecondFace
	}
	if p.DeviceObject != nil {
		c.DeviceObject = *p.DeviceObject
	}
	if p.DownGlance != nil {
		c.DownGlance = *p.DownGlance
	}
	if p.Correlation != nil {
		c.Correlation = *p.Correlation
	}
}
