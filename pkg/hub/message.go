// Package hub provides a thread-safe websocket broadcast hub using the
// channel-based fan-out pattern. The dashboard uses one hub per stream:
// filtered-signal summaries, flag events, and alert transitions.
package hub

import "encoding/json"

// Event is one broadcast payload: a stream name plus a JSON body, so a
// single dashboard socket can multiplex every stream.
type Event struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// NewEvent encodes v as the payload of one broadcast event.
func NewEvent(stream string, v interface{}) (Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Event{}, err
	}
	return Event{Stream: stream, Data: data}, nil
}
