// Simulate streams a synthetic proctoring session into a running service,
// for tuning thresholds and demoing the pipeline without a browser client.
//
// Usage:
//
//	go run ./cmd/simulate -addr ws://localhost:8080/ws/session -scenario eyes-off
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sayantanmandal1/eyesonscreen/pkg/detector"
	"github.com/sayantanmandal1/eyesonscreen/pkg/ingest"
	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws/session", "session websocket URL")
	scenario := flag.String("scenario", "clean", "clean | eyes-off | second-face | tab-blur | monitor-sweep | occlusion")
	duration := flag.Duration("duration", 30*time.Second, "how long to stream")
	fps := flag.Int("fps", 20, "signal frames per second")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Printf("streaming %q for %v at %d fps\n", *scenario, *duration, *fps)

	ticker := time.NewTicker(time.Second / time.Duration(*fps))
	defer ticker.Stop()
	deadline := time.Now().Add(*duration)

	frame := 0
	for now := range ticker.C {
		if now.After(deadline) {
			break
		}
		frame++

		vs := baseline(now)
		shape(*scenario, &vs, frame, now, conn)

		data, err := ingest.EncodeSignals(vs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			fmt.Fprintf(os.Stderr, "write: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("done")
}

// baseline is a well-behaved candidate: face on, eyes on screen, steady
// lighting, small natural jitter everywhere.
func baseline(now time.Time) signals.VisionSignals {
	return signals.VisionSignals{
		Timestamp:    now,
		FaceDetected: true,
		Landmarks:    jitteredMesh(),
		HeadPose: signals.HeadPose{
			Yaw:        rand.Float64()*4 - 2,
			Pitch:      rand.Float64()*4 - 2,
			Roll:       rand.Float64()*2 - 1,
			Confidence: 0.9,
		},
		Gaze: signals.GazeVector{
			X:          rand.Float64()*0.1 - 0.05,
			Y:          rand.Float64()*0.1 - 0.05,
			Z:          1,
			Confidence: 0.9,
		},
		EyesOnScreen: true,
		Environment: signals.EnvironmentScore{
			Lighting:        0.5 + rand.Float64()*0.05,
			ShadowStability: 0.1,
		},
	}
}

// shape distorts the baseline frame according to the scenario, and sends
// out-of-band events where the scenario calls for them.
func shape(scenario string, vs *signals.VisionSignals, frame int, now time.Time, conn *websocket.Conn) {
	switch scenario {
	case "eyes-off":
		// Look away for one second out of every three.
		if frame%60 < 20 {
			vs.EyesOnScreen = false
			vs.Gaze.X = 0.9
		}

	case "second-face":
		if frame > 40 {
			vs.Environment.SecondaryFaces = 0.8
		}

	case "occlusion":
		// Cover most of the face after the warmup.
		if frame > 40 {
			for i := 100; i < len(vs.Landmarks); i++ {
				vs.Landmarks[i] = signals.Point3{}
			}
		}

	case "tab-blur":
		if frame%100 == 0 {
			ev := detector.Interruption{
				Kind:      detector.KindVisibilityHidden,
				Timestamp: now,
			}
			if data, err := ingest.EncodeInterruption(ev); err == nil {
				conn.WriteMessage(websocket.TextMessage, data)
			}
		}

	case "monitor-sweep":
		// Head yaw tracks a cursor sweeping a second display.
		t := float64(frame) / 20
		yaw := 25 * math.Sin(t)
		vs.HeadPose.Yaw = yaw
		p := ingest.Pointer{X: 960 + yaw*30, Timestamp: now}
		if data, err := ingest.EncodePointer(p); err == nil {
			conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

// jitteredMesh fabricates a full face mesh with small per-frame noise.
func jitteredMesh() []signals.Point3 {
	mesh := make([]signals.Point3, signals.LandmarkCount)
	for i := range mesh {
		mesh[i] = signals.Point3{
			X: 0.5 + rand.Float64()*0.01,
			Y: 0.5 + rand.Float64()*0.01,
			Z: rand.Float64() * 0.01,
		}
	}
	return mesh
}
