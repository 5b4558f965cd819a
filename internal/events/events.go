package events

import (
	"context"
	"encoding/json"
)

// Event topic constants. Topics double as NATS subjects.
const (
	TopicVariableChanged = "variables.variable.changed"
	TopicVariableDeleted = "variables.variable.deleted"

	// TopicAll matches every variable topic (NATS wildcard).
	TopicAll = "variables.>"
)

// Message names on the real-time channel, kept compatible with existing
// dashboard clients.
const (
	MessageVariableUpdate   = "ReceiveVariableUpdate"
	MessageVariableDeletion = "ReceiveVariableDeletion"
)

// MessageName returns the real-time message name for a topic, or the topic
// itself when it has none.
func MessageName(topic string) string {
	switch topic {
	case TopicVariableChanged:
		return MessageVariableUpdate
	case TopicVariableDeleted:
		return MessageVariableDeletion
	}
	return topic
}

// VariableChanged announces a created or updated variable. OldValue is nil
// when the variable was just created.
type VariableChanged struct {
	ID         string  `json:"id"`
	Identifier string  `json:"identifier"`
	OldValue   *string `json:"old_value"`
	NewValue   string  `json:"new_value"`
}

// VariableDeleted announces a hard delete.
type VariableDeleted struct {
	ID string `json:"id"`
}

// Message is a raw event as received from the bus. VariableID is empty
// when the publisher did not tag the message.
type Message struct {
	Topic      string
	VariableID string
	Data       []byte
}

// Frame is the JSON envelope written to real-time clients.
type Frame struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
