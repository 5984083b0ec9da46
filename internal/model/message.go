package model

import "time"

// MessageType distinguishes who authored a conversation turn.
type MessageType string

const (
	MessageTypeUser  MessageType = "user"
	MessageTypeAgent MessageType = "agent"
)

// MessageStatus is the client-side delivery state of a single message.
// Transitions are monotonic (sending → sent → delivered) except that error
// may follow sending or sent.
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusError     MessageStatus = "error"
)

// Message is one turn in a per-agent conversation log.
type Message struct {
	Type      MessageType       `json:"type"`
	Text      string            `json:"text"`
	Timestamp time.Time         `json:"timestamp"`
	MessageID string            `json:"messageId"`
	Status    MessageStatus     `json:"status"`
	Metadata  *ResponseMetadata `json:"metadata,omitempty"`
}
