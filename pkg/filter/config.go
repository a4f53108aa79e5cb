// Package filter smooths noisy per-frame vision measurements into filtered
// signals with per-channel confidence and stability scores. Landmarks run
// through independent constant-position Kalman filters; gaze and head pose
// run Kalman -> EMA -> outlier check; environment channels run plain EMAs.
package filter

// Config holds all tunable filtering parameters.
type Config struct {
	// Kalman noise parameters, shared by every scalar filter.
	ProcessNoise     float64 `koanf:"process_noise"`     // Q
	MeasurementNoise float64 `koanf:"measurement_noise"` // R

	// SmoothingAlpha is the EMA weight of the newest sample (0-1).
	SmoothingAlpha float64 `koanf:"smoothing_alpha"`

	// Outlier rejection over the gaze and head-pose channels.
	OutlierWindow   int     `koanf:"outlier_window"`
	ZScoreThreshold float64 `koanf:"zscore_threshold"`
	IQRMultiplier   float64 `koanf:"iqr_multiplier"`

	// Stability scoring over recent filtered samples.
	StabilityWindow int     `koanf:"stability_window"`
	StabilityScale  float64 `koanf:"stability_scale"`
}

// DefaultConfig returns the recommended filtering parameters.
func DefaultConfig() Config {
	return Config{
		ProcessNoise:     0.01,
		MeasurementNoise: 0.1,

		SmoothingAlpha: 0.3,

		OutlierWindow:   10,
		ZScoreThreshold: 2.5,
		IQRMultiplier:   1.5,

		StabilityWindow: 10,
		StabilityScale:  4.0,
	}
}

// Confidence blend weights across channels. These sum to 1.
const (
	weightGaze        = 0.30
	weightHeadPose    = 0.25
	weightLandmarks   = 0.25
	weightEnvironment = 0.20
)
