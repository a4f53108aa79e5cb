// Package ingest receives a remote proctoring session over one websocket:
// the candidate's browser runs the vision estimators and streams assembled
// signals, pointer positions, and interruption events; raw JPEG frames may
// arrive as binary messages for spot-check review.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sayantanmandal1/eyesonscreen/pkg/detector"
	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

// Text message kinds on the session socket.
const (
	TypeSignals      = "signals"
	TypePointer      = "pointer"
	TypeInterruption = "interruption"
)

// ErrUnknownType is returned for unrecognized text messages.
var ErrUnknownType = errors.New("ingest: unknown message type")

// Envelope wraps every text message on the session socket.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Pointer is one cursor sample from the candidate's quiz page.
type Pointer struct {
	X         float64   `json:"x"`
	Timestamp time.Time `json:"timestamp"`
}

// EncodeSignals builds the wire form of one signals message.
func EncodeSignals(vs signals.VisionSignals) ([]byte, error) {
	return encodeEnvelope(TypeSignals, vs)
}

// EncodePointer builds the wire form of one pointer message.
func EncodePointer(p Pointer) ([]byte, error) {
	return encodeEnvelope(TypePointer, p)
}

// EncodeInterruption builds the wire form of one interruption message.
func EncodeInterruption(ev detector.Interruption) ([]byte, error) {
	return encodeEnvelope(TypeInterruption, ev)
}

func encodeEnvelope(kind string, v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ingest: encode %s: %w", kind, err)
	}
	return json.Marshal(Envelope{Type: kind, Data: data})
}
