// Package metrics exposes Prometheus instrumentation for the proctoring
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sayantanmandal1/eyesonscreen/pkg/alert"
	"github.com/sayantanmandal1/eyesonscreen/pkg/engine"
	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

const namespace = "eyesonscreen"

// Manager holds the pipeline's Prometheus collectors.
type Manager struct {
	framesProcessed prometheus.Counter
	droppedFrames   prometheus.Counter
	processing      prometheus.Histogram
	targetFPS       prometheus.Gauge
	actualFPS       prometheus.Gauge

	flagsTotal   *prometheus.CounterVec
	riskScore    prometheus.Gauge
	activeAlerts prometheus.Gauge
	frameErrors  prometheus.Counter
}

// New registers the pipeline collectors on the default registry.
func New() *Manager {
	return &Manager{
		framesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "frames_processed_total",
			Help: "Frames that completed the filter and detection stages.",
		}),
		droppedFrames: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "frames_dropped_total",
			Help: "Ticks that produced no usable frame or signals.",
		}),
		processing: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "engine", Name: "processing_seconds",
			Help:    "Per-frame pipeline processing time.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		targetFPS: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "engine", Name: "target_fps",
			Help: "Current adaptive frame-rate target.",
		}),
		actualFPS: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "engine", Name: "actual_fps",
			Help: "Frames processed per second over the last telemetry window.",
		}),
		flagsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "detector", Name: "flags_total",
			Help: "Flag events emitted, by type and severity.",
		}, []string{"type", "severity"}),
		riskScore: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "alert", Name: "risk_score",
			Help: "Current session risk score (0-100).",
		}),
		activeAlerts: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "alert", Name: "active_alerts",
			Help: "Alerts currently visible to the user.",
		}),
		frameErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "engine", Name: "frame_errors_total",
			Help: "Capture or estimator failures isolated by the engine.",
		}),
	}
}

// ObserveTelemetry records one engine performance snapshot.
func (m *Manager) ObserveTelemetry(t engine.Metrics) {
	m.targetFPS.Set(float64(t.TargetFPS))
	m.actualFPS.Set(t.ActualFPS)
	m.processing.Observe(t.AvgProcessing.Seconds())
}

// ObserveFlag counts one emitted flag event.
func (m *Manager) ObserveFlag(f signals.FlagEvent) {
	m.flagsTotal.WithLabelValues(string(f.Type), string(f.Severity)).Inc()
}

// ObserveAlerts records the alert engine's current state.
func (m *Manager) ObserveAlerts(e *alert.Engine) {
	m.riskScore.Set(e.Risk())
	m.activeAlerts.Set(float64(len(e.GetActiveAlerts())))
}

// FrameProcessed counts one completed frame.
func (m *Manager) FrameProcessed() { m.framesProcessed.Inc() }

// FrameDropped counts one dropped tick.
func (m *Manager) FrameDropped() { m.droppedFrames.Inc() }

// FrameError counts one isolated per-frame fault.
func (m *Manager) FrameError() { m.frameErrors.Inc() }
