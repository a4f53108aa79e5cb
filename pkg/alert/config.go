// Package alert turns raw flag events into throttled, user-relevant alert
// transitions and a decaying session risk score.
package alert

import "time"

// Config holds debouncing and risk-scoring parameters.
type Config struct {
	// SoftAlertFrames is how many times a soft flag type must be observed
	// before a toast-class alert surfaces; HardAlertFrames likewise for
	// modal-class alerts.
	SoftAlertFrames int `koanf:"soft_alert_frames"`
	HardAlertFrames int `koanf:"hard_alert_frames"`

	// GracePeriod suppresses re-triggering a flag type after an alert of
	// that type was dismissed.
	GracePeriod time.Duration `koanf:"grace_period"`

	// Risk scoring.
	EyesOffPerSecond float64 `koanf:"eyes_off_per_second"`
	HardEventBonus   float64 `koanf:"hard_event_bonus"`
	DecayPerSecond   float64 `koanf:"decay_per_second"`

	// ReviewThreshold is reported when crossed; acting on it is policy
	// that lives outside this engine.
	ReviewThreshold float64 `koanf:"review_threshold"`
}

// DefaultConfig returns the recommended alerting parameters.
func DefaultConfig() Config {
	return Config{
		SoftAlertFrames: 3,
		HardAlertFrames: 1,
		GracePeriod:     5 * time.Second,

		EyesOffPerSecond: 2,
		HardEventBonus:   10,
		DecayPerSecond:   1,
		ReviewThreshold:  60,
	}
}
