package dto

import (
	"time"

	"umbra.legal/relay/internal/model"
)

type SendMessageRequest struct {
	Message    string       `json:"message"`
	FunctionID string       `json:"functionId"`
	MessageID  string       `json:"messageId"`
	Webhook    string       `json:"webhook"`
	Context    *SendContext `json:"context,omitempty"`
}

type SendContext struct {
	ActiveModule     int             `json:"activeModule"`
	FunctionName     string          `json:"functionName"`
	PreviousMessages []model.Message `json:"previousMessages"`
}

type SendMessageResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// WebhookResponseRequest is the structured variant of an inbound workflow
// reply. Raw text bodies are the fallback variant, handled separately.
type WebhookResponseRequest struct {
	MessageID  string                  `json:"messageId"`
	Output     string                  `json:"output"`
	FunctionID string                  `json:"functionId"`
	Timestamp  *time.Time              `json:"timestamp,omitempty"`
	Metadata   *model.ResponseMetadata `json:"metadata,omitempty"`
}

type WebhookResponseResponse struct {
	Success  bool   `json:"success"`
	Received bool   `json:"received"`
	Error    string `json:"error,omitempty"`
}

type PendingResponsesResponse struct {
	Responses []model.BufferedResponse `json:"responses"`
	Count     int                      `json:"count"`
}

type MessageStatusResponse struct {
	Status      string `json:"status"`
	HasResponse bool   `json:"hasResponse"`
}

type ClearCacheResponse struct {
	Success bool `json:"success"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
