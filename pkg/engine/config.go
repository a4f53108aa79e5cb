package engine

import "time"

// Frame-rate bounds for the adaptive scheduler.
const (
	MinFPS = 15
	MaxFPS = 60
)

// Config holds scheduling parameters.
type Config struct {
	// TargetFPS is the initial frame rate, clamped to [MinFPS, MaxFPS].
	TargetFPS int `koanf:"target_fps"`

	// Adaptive enables load-based frame-rate adjustment.
	Adaptive bool `koanf:"adaptive"`

	// ProcTimeWindow is how many recent per-frame processing times feed
	// the adaptive decision.
	ProcTimeWindow int `koanf:"proc_time_window"`

	// TelemetryInterval is the fixed cadence for performance updates,
	// independent of the tick cadence.
	TelemetryInterval time.Duration `koanf:"telemetry_interval"`
}

// DefaultConfig returns the recommended scheduling parameters.
func DefaultConfig() Config {
	return Config{
		TargetFPS:         30,
		Adaptive:          true,
		ProcTimeWindow:    30,
		TelemetryInterval: time.Second,
	}
}

// Metrics is one performance telemetry snapshot.
type Metrics struct {
	TargetFPS       int           `json:"target_fps"`
	ActualFPS       float64       `json:"actual_fps"`
	AvgProcessing   time.Duration `json:"avg_processing"`
	DroppedFrames   uint64        `json:"dropped_frames"`
	FramesProcessed uint64        `json:"frames_processed"`
	HeapAllocBytes  uint64        `json:"heap_alloc_bytes"`
	GoroutineCount  int           `json:"goroutine_count"`
}
