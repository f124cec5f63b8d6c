package amqp

import (
	"encoding/json"
	"time"

	"planner/internal/core"
)

// SessionEventMessage is the audit record published for every session change.
// It never carries tokens.
type SessionEventMessage struct {
	Kind      string    `json:"kind"`
	ClientID  string    `json:"client_id"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSessionEventMessage builds the audit record for event.
func NewSessionEventMessage(event core.SessionEvent) *SessionEventMessage {
	msg := &SessionEventMessage{
		Kind:      string(event.Kind),
		ClientID:  event.ClientID,
		Timestamp: event.Timestamp,
	}
	if u := event.User(); u != nil {
		msg.UserID = u.ID
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *SessionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SessionEventMessageFromJSON creates a message from JSON bytes
func SessionEventMessageFromJSON(data []byte) (*SessionEventMessage, error) {
	var msg SessionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
