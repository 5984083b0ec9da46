// Package client implements the dashboard side of the relay: the webhook
// gateway that sends messages through the relay server, and the polling
// coordinator that drains buffered replies.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"umbra.legal/relay/common/id"
	"umbra.legal/relay/internal/catalog"
	"umbra.legal/relay/internal/http/dto"
	"umbra.legal/relay/internal/model"
)

// Gateway talks to the relay server; it never talks to the automation
// webhooks directly. Construct one and share it explicitly — there is no
// hidden singleton.
type Gateway struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewGateway(baseURL string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 35 * time.Second},
		logger:  logger,
	}
}

type SendPayload struct {
	Message    string
	FunctionID catalog.FunctionID
	MessageID  string
	WebhookURL string
	Context    *dto.SendContext
}

// SendResult is the normalized outcome of a send. Failures are values, not
// errors: callers always receive a result.
type SendResult struct {
	Success   bool
	MessageID string
	Status    string
	Error     string
}

// SendMessage forwards a user message through the relay server. Network and
// parsing failures are converted into a failure result rather than returned
// as an error.
func (g *Gateway) SendMessage(ctx context.Context, payload SendPayload) SendResult {
	messageID := payload.MessageID
	if messageID == "" {
		messageID = id.NewMessageID("user")
	}

	req := dto.SendMessageRequest{
		Message:    payload.Message,
		FunctionID: payload.FunctionID.String(),
		MessageID:  messageID,
		Webhook:    payload.WebhookURL,
		Context:    payload.Context,
	}

	var resp dto.SendMessageResponse
	if _, err := g.post(ctx, "/api/send-message", req, &resp); err != nil {
		g.logger.WarnContext(ctx, "send failed", "error", err, "message_id", messageID)
		return SendResult{Success: false, MessageID: messageID, Status: "error", Error: err.Error()}
	}
	if !resp.Success {
		errMsg := resp.Error
		if errMsg == "" {
			errMsg = "failed to send message"
		}
		return SendResult{Success: false, MessageID: messageID, Status: "error", Error: errMsg}
	}

	return SendResult{Success: true, MessageID: messageID, Status: resp.Status}
}

// PollResponses drains buffered replies from the relay server.
func (g *Gateway) PollResponses(ctx context.Context) ([]model.BufferedResponse, error) {
	var resp dto.PendingResponsesResponse
	status, err := g.get(ctx, "/api/pending-responses", &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("poll returned status %d", status)
	}
	return resp.Responses, nil
}

// MessageStatus reports the delivery status for a message id.
func (g *Gateway) MessageStatus(ctx context.Context, messageID string) (string, error) {
	var resp dto.MessageStatusResponse
	status, err := g.get(ctx, "/api/message-status/"+messageID, &resp)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("status check returned status %d", status)
	}
	if resp.Status == "" {
		return model.DeliveryUnknown, nil
	}
	return resp.Status, nil
}

// ClearCache wipes the relay's correlation store. Operational use only.
func (g *Gateway) ClearCache(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, g.baseURL+"/api/clear-cache", nil)
	if err != nil {
		return fmt.Errorf("build clear request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clear cache returned status %d", resp.StatusCode)
	}
	return nil
}

func (g *Gateway) post(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return g.do(req, out)
}

func (g *Gateway) get(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return g.do(req, out)
}

// do executes the request and decodes the body into out regardless of HTTP
// status: error bodies carry the same normalized shape as success bodies.
func (g *Gateway) do(req *http.Request, out any) (int, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling relay: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading relay response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding relay response (status %d): %w", resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}
