package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/sayantanmandal1/eyesonscreen/internal/config"
)

func TestLoad(t *testing.T) {
	convey.Convey("Given the config loader", t, func() {
		convey.Convey("When loading with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.SessionIdleTimeout, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.Capture.Enabled, convey.ShouldBeFalse)
				convey.So(cfg.Redis.Addr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.Engine.TargetFPS, convey.ShouldEqual, 30)
				convey.So(cfg.Alert.GracePeriod, convey.ShouldEqual, 5*time.Second)
			})
		})

		convey.Convey("When loading with environment variables", func() {
			_ = os.Setenv("EOS_ADDR", ":9090")
			_ = os.Setenv("EOS_LOG_LEVEL", "debug")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then env vars should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When loading with a YAML file", func() {
			yamlContent := `
addr: ":7070"
session_idle_timeout: 45s
capture:
  enabled: true
  device_id: 2
alert:
  grace_period: 10s
detector:
  eyes_off:
    min_gaze_confidence: 0.4
    duration: 750ms
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("EOS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then file values should merge over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.SessionIdleTimeout, convey.ShouldEqual, 45*time.Second)
				convey.So(cfg.Capture.Enabled, convey.ShouldBeTrue)
				convey.So(cfg.Capture.DeviceID, convey.ShouldEqual, 2)
				convey.So(cfg.Alert.GracePeriod, convey.ShouldEqual, 10*time.Second)
				convey.So(cfg.Detector.EyesOff.MinGazeConfidence, convey.ShouldEqual, 0.4)
				convey.So(cfg.Detector.EyesOff.Duration, convey.ShouldEqual, 750*time.Millisecond)
				// Untouched sections keep their defaults.
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.Detector.HeadPose.YawMax, convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When both a file and env vars are present", func() {
			tmpFile := createTempConfigFile("addr: \":7070\"\nlog_level: warn\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("EOS_CONFIG", tmpFile)
			_ = os.Setenv("EOS_ADDR", ":9999")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then env vars should win over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9999")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("EOS_CONFIG", "/nonexistent/eyesonscreen.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When addr is emptied", func() {
			_ = os.Setenv("EOS_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "eyesonscreen-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	_ = f.Close()
	return f.Name()
}

func clearConfigEnvVars() {
	for _, key := range []string{"EOS_CONFIG", "EOS_ADDR", "EOS_LOG_LEVEL"} {
		_ = os.Unsetenv(key)
	}
}
