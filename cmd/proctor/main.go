// Proctor runs the monitoring service: it receives a remote session over
// websocket (or watches a local webcam), drives the filtering and detection
// pipeline, and serves the operator dashboard.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sayantanmandal1/eyesonscreen/internal/config"
	"github.com/sayantanmandal1/eyesonscreen/internal/log"
	"github.com/sayantanmandal1/eyesonscreen/internal/metrics"
	"github.com/sayantanmandal1/eyesonscreen/internal/sink"
	"github.com/sayantanmandal1/eyesonscreen/internal/webdash"
	"github.com/sayantanmandal1/eyesonscreen/pkg/alert"
	"github.com/sayantanmandal1/eyesonscreen/pkg/capture"
	"github.com/sayantanmandal1/eyesonscreen/pkg/detector"
	"github.com/sayantanmandal1/eyesonscreen/pkg/engine"
	"github.com/sayantanmandal1/eyesonscreen/pkg/filter"
	"github.com/sayantanmandal1/eyesonscreen/pkg/ingest"
	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	m := metrics.New()

	filt := filter.New(cfg.Filter)
	det := detector.New(cfg.Detector)
	alerts := alert.NewEngine(cfg.Alert)

	deps := engine.Deps{
		Filter:   filt,
		Detector: det,
		Alerts:   alerts,
	}

	var session *ingest.Session
	if cfg.Capture.Enabled {
		webcam, err := capture.OpenWebcam(cfg.Capture.DeviceID)
		if err != nil {
			log.Error("webcam open failed", "err", err)
			os.Exit(1)
		}
		defer webcam.Close()

		face, err := capture.NewYuNetFace(capture.YuNetConfig{
			ModelPath:        cfg.Capture.ModelPath,
			ConfidenceThresh: 0.5,
			InputWidth:       320,
			InputHeight:      320,
		})
		if err != nil {
			log.Error("face detector init failed", "err", err)
			os.Exit(1)
		}
		defer face.Close()

		deps.Video = webcam
		deps.Estimators = engine.Estimators{
			Face:        face,
			Environment: capture.NewEnvironmentProbe(),
		}
		log.Info("local capture enabled", "device", cfg.Capture.DeviceID)
	} else {
		session = ingest.NewSession()
		session.SetPointerHandler(det.OnPointerMove)
		det.Bind(session)
		deps.Signals = session
		log.Info("remote session mode enabled")
	}

	eng := engine.New(cfg.Engine, deps)
	dash := webdash.NewServer(cfg.Addr, eng, alerts, det, session, cfg.SessionIdleTimeout)

	var flagSink *sink.FlagSink
	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		flagSink, err = sink.NewFlagSink(ctx, cfg.Redis.Addr, cfg.Redis.Stream)
		cancel()
		if err != nil {
			log.Error("redis sink init failed", "err", err)
			os.Exit(1)
		}
		defer flagSink.Close()
	}

	publishFlag := func(f signals.FlagEvent) {
		m.ObserveFlag(f)
		dash.PublishFlag(f)
		if flagSink != nil {
			flagSink.WriteAsync(f)
		}
	}

	det.OnBrowserEventFlag = func(f signals.FlagEvent) {
		publishFlag(f)
		alerts.ProcessFlag(f)
	}

	eng.OnSignalsUpdate = func(fs signals.FilteredSignals) {
		m.FrameProcessed()
		dash.PublishSignals(fs)
	}
	eng.OnFlags = func(flags []signals.FlagEvent) {
		for _, f := range flags {
			publishFlag(f)
		}
	}
	eng.OnPerformanceUpdate = func(pm engine.Metrics) {
		m.ObserveTelemetry(pm)
		m.ObserveAlerts(alerts)
		dash.PublishPerformance(pm)
	}
	eng.OnError = func(err error) {
		m.FrameError()
	}

	alerts.OnSoftAlert = dash.PublishAlert
	alerts.OnHardAlert = dash.PublishAlert
	alerts.OnReviewThreshold = func(risk float64) {
		log.Warn("risk score crossed review threshold", "risk", risk)
	}

	if err := eng.Start(); err != nil {
		log.Error("engine start failed", "err", err)
		os.Exit(1)
	}

	go func() {
		if err := dash.Start(); err != nil {
			log.Error("dashboard server stopped", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	eng.Dispose()
	det.Dispose()
	alerts.Dispose()
	if err := dash.Shutdown(); err != nil {
		log.Warn("dashboard shutdown", "err", err)
	}
}
