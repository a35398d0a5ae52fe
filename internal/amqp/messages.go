package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"spendlog/internal/core"
)

// LogChangeMessage announces that a log was created, updated or deleted.
// It carries identifiers only; consumers fetch the log itself.
type LogChangeMessage struct {
	LogID     string          `json:"logId"`
	OwnerID   string          `json:"ownerId"`
	Title     string          `json:"title,omitempty"`
	Kind      core.ChangeKind `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewLogChangeMessage(c core.LogChange) *LogChangeMessage {
	ts := c.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LogChangeMessage{
		LogID:     c.LogID,
		OwnerID:   c.OwnerID,
		Title:     c.Title,
		Kind:      c.Kind,
		Timestamp: ts.UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LogChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Change converts the message back into a domain change.
func (m *LogChangeMessage) Change() core.LogChange {
	return core.LogChange{
		LogID:     m.LogID,
		OwnerID:   m.OwnerID,
		Title:     m.Title,
		Kind:      m.Kind,
		Timestamp: m.Timestamp,
	}
}

// LogChangeMessageFromJSON decodes and checks a message body.
func LogChangeMessageFromJSON(data []byte) (*LogChangeMessage, error) {
	var msg LogChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.LogID == "" {
		return nil, errors.New("message has no log id")
	}
	switch msg.Kind {
	case core.LogCreated, core.LogUpdated, core.LogDeleted:
	default:
		return nil, errors.New("unknown change kind " + string(msg.Kind))
	}
	return &msg, nil
}
