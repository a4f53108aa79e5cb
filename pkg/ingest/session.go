package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sayantanmandal1/eyesonscreen/internal/log"
	"github.com/sayantanmandal1/eyesonscreen/pkg/detector"
	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

// ErrNoFrame is returned before the first frame arrives.
var ErrNoFrame = errors.New("ingest: no frame received yet")

// Session holds the latest state of one remote monitoring session. It
// implements the engine's SignalsProvider and VideoSource, and the
// detector's InterruptionSource, so a remote session plugs into the
// pipeline exactly like a local camera.
type Session struct {
	mu sync.Mutex

	latest     signals.VisionSignals
	hasSignals bool

	frame   []byte
	frameAt time.Time

	lastSeen time.Time

	pointerFn func(x float64, at time.Time)

	subs    map[int]func(detector.Interruption)
	nextSub int
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{subs: make(map[int]func(detector.Interruption))}
}

// Latest returns the most recently received signals.
func (s *Session) Latest() (signals.VisionSignals, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.hasSignals
}

// CaptureJPEG returns the most recently received raw frame.
func (s *Session) CaptureJPEG() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return nil, ErrNoFrame
	}
	return s.frame, nil
}

// LastSeen reports when the session last sent anything, for idle eviction.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SetPointerHandler routes pointer samples, typically to
// Detector.OnPointerMove.
func (s *Session) SetPointerHandler(fn func(x float64, at time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointerFn = fn
}

// OnInterruption registers a receiver for interruption events and returns
// its cancel function. Satisfies detector.InterruptionSource.
func (s *Session) OnInterruption(fn func(detector.Interruption)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Conn is the slice of a websocket connection Serve needs. Both the fiber
// and gorilla connection types satisfy it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	SetReadDeadline(t time.Time) error
}

// Serve reads the session socket until it closes or stays idle past
// idleTimeout. Every received message resets the idle clock; a session that
// stops sending is evicted. idleTimeout <= 0 disables eviction. Malformed
// messages are logged and skipped; they never terminate the session.
func (s *Session) Serve(conn Conn, idleTimeout time.Duration) {
	for {
		if idleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
				return
			}
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			log.Info("session closed", "err", err)
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.handleFrame(data)
		case websocket.TextMessage:
			if err := s.HandleText(data); err != nil {
				log.Warn("session message rejected", "err", err)
			}
		}
	}
}

// HandleText processes one text message from the session socket.
func (s *Session) HandleText(data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("ingest: decode envelope: %w", err)
	}

	switch env.Type {
	case TypeSignals:
		var vs signals.VisionSignals
		if err := json.Unmarshal(env.Data, &vs); err != nil {
			return fmt.Errorf("ingest: decode signals: %w", err)
		}
		s.mu.Lock()
		s.latest = vs
		s.hasSignals = true
		s.lastSeen = time.Now()
		s.mu.Unlock()

	case TypePointer:
		var p Pointer
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("ingest: decode pointer: %w", err)
		}
		s.mu.Lock()
		fn := s.pointerFn
		s.lastSeen = time.Now()
		s.mu.Unlock()
		if fn != nil {
			fn(p.X, p.Timestamp)
		}

	case TypeInterruption:
		var ev detector.Interruption
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return fmt.Errorf("ingest: decode interruption: %w", err)
		}
		s.mu.Lock()
		subs := make([]func(detector.Interruption), 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
		s.lastSeen = time.Now()
		s.mu.Unlock()
		for _, fn := range subs {
			fn(ev)
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	return nil
}

func (s *Session) handleFrame(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = data
	s.frameAt = time.Now()
	s.lastSeen = time.Now()
}
