// Package protocol defines the JSON envelope carried on the real-time event
// channel. The channel client and the server-side event hub both import it.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventName identifies the kind of event on the wire.
type EventName string

const (
	EventNewAlert     EventName = "newAlert"
	EventDeviceUpdate EventName = "deviceUpdate"
	EventStatsUpdate  EventName = "statsUpdate"
)

// Envelope wraps every message on the wire.
type Envelope struct {
	ID        string          `json:"id"`
	Event     EventName       `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into a fresh envelope for event.
func NewEnvelope(event EventName, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{
		ID:        uuid.New().String(),
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// Decode parses a raw frame. An envelope without an event name is rejected.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing event name")
	}
	return env, nil
}
