package model

import "time"

// PendingSend marks a message that was forwarded to an automation webhook and
// is still awaiting its asynchronous reply. It lives in the correlation store
// under pending_<messageId> until a reply arrives or the TTL evicts it.
type PendingSend struct {
	MessageID  string    `json:"messageId"`
	FunctionID string    `json:"functionId"`
	Timestamp  time.Time `json:"timestamp"`
	Status     string    `json:"status"` // always "sent" while pending
}

// BufferedResponse is a reply posted back by the automation engine, buffered
// under response_<messageId> until a poller drains it. Consumed exactly once.
type BufferedResponse struct {
	MessageID  string            `json:"messageId"`
	Output     string            `json:"output"`
	FunctionID string            `json:"functionId"`
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   *ResponseMetadata `json:"metadata,omitempty"`
}

// ResponseMetadata carries optional quality signals attached by a workflow.
type ResponseMetadata struct {
	Confidence     float64  `json:"confidence"`
	ProcessingTime float64  `json:"processingTime"`
	Sources        []string `json:"sources,omitempty"`
}

// Delivery status values reported by the message-status endpoint.
const (
	DeliveryDelivered = "delivered"
	DeliverySent      = "sent"
	DeliveryUnknown   = "unknown"
)

// Defaults applied when a workflow posts back a sparse or raw-text reply.
// Dropping a real reply is worse than storing a defaulted one.
const (
	DefaultOutput       = "Respuesta procesada correctamente"
	PlaceholderFunction = "unknown"
	SentinelMessageID   = "unknown"
)

// DefaultMetadata returns the canned confidence/latency pair used when a
// workflow omits metadata.
func DefaultMetadata() *ResponseMetadata {
	return &ResponseMetadata{Confidence: 0.9, ProcessingTime: 1.5}
}
