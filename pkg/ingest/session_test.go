package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sayantanmandal1/eyesonscreen/pkg/detector"
	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

func TestSignalsMessageUpdatesLatest(t *testing.T) {
	s := NewSession()

	if _, ok := s.Latest(); ok {
		t.Fatal("fresh session reports signals")
	}

	ts := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	msg, err := EncodeSignals(signals.VisionSignals{
		Timestamp:    ts,
		FaceDetected: true,
		EyesOnScreen: true,
		Gaze:         signals.GazeVector{Z: 1, Confidence: 0.8},
	})
	if err != nil {
		t.Fatalf("EncodeSignals: %v", err)
	}
	if err := s.HandleText(msg); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	vs, ok := s.Latest()
	if !ok {
		t.Fatal("signals not stored")
	}
	if !vs.Timestamp.Equal(ts) || !vs.FaceDetected || vs.Gaze.Confidence != 0.8 {
		t.Errorf("stored signals = %+v", vs)
	}
	if s.LastSeen().IsZero() {
		t.Error("LastSeen not updated by a signals message")
	}
}

func TestPointerMessageRoutesToHandler(t *testing.T) {
	s := NewSession()

	var gotX float64
	var gotAt time.Time
	s.SetPointerHandler(func(x float64, at time.Time) {
		gotX, gotAt = x, at
	})

	at := time.Date(2026, 3, 14, 10, 0, 1, 0, time.UTC)
	msg, err := EncodePointer(Pointer{X: 640, Timestamp: at})
	if err != nil {
		t.Fatalf("EncodePointer: %v", err)
	}
	if err := s.HandleText(msg); err != nil {
		t.Fatalf("HandleText: %v", err)
	}

	if gotX != 640 || !gotAt.Equal(at) {
		t.Errorf("pointer handler got (%v, %v)", gotX, gotAt)
	}
}

func TestPointerMessageWithoutHandlerIsDropped(t *testing.T) {
	s := NewSession()
	msg, _ := EncodePointer(Pointer{X: 1})
	if err := s.HandleText(msg); err != nil {
		t.Errorf("HandleText without a pointer handler = %v", err)
	}
}

func TestInterruptionFanOutAndCancel(t *testing.T) {
	s := NewSession()

	var first, second []detector.Interruption
	cancel := s.OnInterruption(func(ev detector.Interruption) { first = append(first, ev) })
	s.OnInterruption(func(ev detector.Interruption) { second = append(second, ev) })

	msg, err := EncodeInterruption(detector.Interruption{
		Kind:   detector.KindWindowBlur,
		Detail: "alt+tab",
	})
	if err != nil {
		t.Fatalf("EncodeInterruption: %v", err)
	}
	if err := s.HandleText(msg); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("fan-out = %d/%d, want 1/1", len(first), len(second))
	}
	if first[0].Kind != detector.KindWindowBlur || first[0].Detail != "alt+tab" {
		t.Errorf("delivered event = %+v", first[0])
	}

	cancel()
	if err := s.HandleText(msg); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	if len(first) != 1 {
		t.Error("canceled subscriber still received an event")
	}
	if len(second) != 2 {
		t.Errorf("remaining subscriber received %d events, want 2", len(second))
	}
}

func TestUnknownAndMalformedMessages(t *testing.T) {
	s := NewSession()

	if err := s.HandleText([]byte(`{"type":"telemetry","data":{}}`)); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unknown type = %v, want ErrUnknownType", err)
	}
	if err := s.HandleText([]byte(`not json`)); err == nil {
		t.Error("malformed envelope accepted")
	}
	if err := s.HandleText([]byte(`{"type":"signals","data":"nope"}`)); err == nil {
		t.Error("malformed signals payload accepted")
	}
}

func TestCaptureJPEGRequiresAFrame(t *testing.T) {
	s := NewSession()

	if _, err := s.CaptureJPEG(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("CaptureJPEG on empty session = %v, want ErrNoFrame", err)
	}

	s.handleFrame([]byte{0xff, 0xd8, 0xff})
	frame, err := s.CaptureJPEG()
	if err != nil {
		t.Fatalf("CaptureJPEG: %v", err)
	}
	if len(frame) != 3 || frame[0] != 0xff {
		t.Errorf("frame = %v", frame)
	}
}

// scriptedConn feeds Serve a fixed message sequence and records every read
// deadline it is handed.
type scriptedConn struct {
	deadlines []time.Time
	msgs      [][]byte
}

func (c *scriptedConn) SetReadDeadline(t time.Time) error {
	c.deadlines = append(c.deadlines, t)
	return nil
}

func (c *scriptedConn) ReadMessage() (int, []byte, error) {
	if len(c.msgs) == 0 {
		return 0, nil, errors.New("read deadline exceeded")
	}
	data := c.msgs[0]
	c.msgs = c.msgs[1:]
	return websocket.TextMessage, data, nil
}

func TestServeEvictsIdleSessions(t *testing.T) {
	msg, err := EncodeSignals(signals.VisionSignals{FaceDetected: true})
	if err != nil {
		t.Fatalf("EncodeSignals: %v", err)
	}

	s := NewSession()
	conn := &scriptedConn{msgs: [][]byte{msg}}

	start := time.Now()
	s.Serve(conn, 30*time.Second) // returns once the scripted reads run out

	if _, ok := s.Latest(); !ok {
		t.Fatal("signals message not processed before eviction")
	}
	if len(conn.deadlines) != 2 {
		t.Fatalf("expected a read deadline before each read, got %d", len(conn.deadlines))
	}
	for i, d := range conn.deadlines {
		left := d.Sub(start)
		if left < 29*time.Second || left > time.Minute {
			t.Errorf("deadline %d is %v from start, want ~30s of idle allowance", i, left)
		}
	}
}

func TestServeWithoutTimeoutSetsNoDeadline(t *testing.T) {
	s := NewSession()
	conn := &scriptedConn{}

	s.Serve(conn, 0)

	if len(conn.deadlines) != 0 {
		t.Errorf("idle eviction disabled but %d deadlines were set", len(conn.deadlines))
	}
}
