// Package config assembles the service configuration from defaults, an
// optional YAML file, and environment variables.
package config

import (
	"time"

	"github.com/sayantanmandal1/eyesonscreen/pkg/alert"
	"github.com/sayantanmandal1/eyesonscreen/pkg/detector"
	"github.com/sayantanmandal1/eyesonscreen/pkg/engine"
	"github.com/sayantanmandal1/eyesonscreen/pkg/filter"
)

// CaptureConfig selects the local camera and face model, used when the
// service runs the estimators itself instead of receiving remote signals.
type CaptureConfig struct {
	Enabled   bool   `koanf:"enabled"`
	DeviceID  int    `koanf:"device_id"`
	ModelPath string `koanf:"model_path"`
}

// RedisConfig points the flag sink at a Redis stream.
type RedisConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	Stream  string `koanf:"stream"`
}

// Config is the full service configuration.
type Config struct {
	Addr     string `koanf:"addr"`
	LogLevel string `koanf:"log_level"`

	// SessionIdleTimeout disconnects remote sessions that stop sending.
	SessionIdleTimeout time.Duration `koanf:"session_idle_timeout"`

	Capture CaptureConfig `koanf:"capture"`
	Redis   RedisConfig   `koanf:"redis"`

	Engine   engine.Config   `koanf:"engine"`
	Filter   filter.Config   `koanf:"filter"`
	Detector detector.Config `koanf:"detector"`
	Alert    alert.Config    `koanf:"alert"`
}

// New returns the built-in defaults.
func New() *Config {
	return &Config{
		Addr:               ":8080",
		LogLevel:           "info",
		SessionIdleTimeout: 30 * time.Second,

		Capture: CaptureConfig{
			Enabled:   false,
			DeviceID:  0,
			ModelPath: "models/face_detection_yunet.onnx",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			Stream:  "eyesonscreen:flags",
		},

		Engine:   engine.DefaultConfig(),
		Filter:   filter.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		Alert:    alert.DefaultConfig(),
	}
}
