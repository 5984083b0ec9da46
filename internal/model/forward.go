package model

// ForwardPayload is the enriched JSON body POSTed to an agent's n8n webhook.
// The shape is fixed: the workflows on the other side destructure it by key.
type ForwardPayload struct {
	Message         string         `json:"message"`
	FunctionID      string         `json:"functionId"`
	MessageID       string         `json:"messageId"`
	Timestamp       string         `json:"timestamp"`
	User            string         `json:"user"`
	ResponseWebhook string         `json:"responseWebhook"`
	Context         ForwardContext `json:"context"`
	WebhookConfig   WebhookConfig  `json:"webhookConfig"`
}

type ForwardContext struct {
	ActiveModule int         `json:"activeModule"`
	FunctionName string      `json:"functionName"`
	SessionData  SessionData `json:"sessionData"`
}

type SessionData struct {
	PreviousMessages []Message `json:"previousMessages"`
}

// WebhookConfig tells the workflow how this relay expects the reply shaped.
type WebhookConfig struct {
	ExpectsResponse bool   `json:"expectsResponse"`
	ResponseFormat  string `json:"responseFormat"`
	ResponseField   string `json:"responseField"`
	StatusCode      int    `json:"statusCode"`
}

// ForwardUser is the fixed user tag stamped on every outbound payload.
const ForwardUser = "admin"

// DefaultWebhookConfig returns the reply contract advertised to workflows.
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		ExpectsResponse: true,
		ResponseFormat:  "json",
		ResponseField:   "output",
		StatusCode:      200,
	}
}
