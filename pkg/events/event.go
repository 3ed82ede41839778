package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeSessionStarted   = "SESSION_STARTED"
	TypeTurnProcessed    = "TURN_PROCESSED"
	TypeSessionCompleted = "SESSION_COMPLETED"
	TypeSessionExpired   = "SESSION_EXPIRED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_STARTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the single event shape used on every bus. SessionID routes it
// to observers.
type BaseEvent struct {
	Type       string                 `json:"type"`
	SessionID  string                 `json:"session_id"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func NewSessionEvent(eventType, sessionID string, data map[string]interface{}, at time.Time) BaseEvent {
	return BaseEvent{
		Type:       eventType,
		SessionID:  sessionID,
		Data:       data,
		OccurredAt: at.UTC(),
	}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Marshal encodes any Event as a BaseEvent envelope.
func Marshal(e Event) ([]byte, error) {
	if be, ok := e.(BaseEvent); ok {
		return json.Marshal(be)
	}
	return json.Marshal(BaseEvent{Type: e.EventType(), Data: e.Payload(), OccurredAt: e.Timestamp()})
}

func Unmarshal(data []byte) (BaseEvent, error) {
	var e BaseEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return BaseEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return BaseEvent{}, fmt.Errorf("decode event: missing type")
	}
	return e, nil
}
