package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"umbra.legal/relay/internal/model"
)

// Forwarder delivers an enriched payload to an agent's automation webhook.
type Forwarder interface {
	Forward(ctx context.Context, webhookURL string, payload model.ForwardPayload) error
}

type httpForwarder struct {
	client *http.Client
}

// NewHTTPForwarder returns a Forwarder with its own bounded timeout, distinct
// from the inbound request's deadline.
func NewHTTPForwarder(timeout time.Duration) Forwarder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpForwarder{
		client: &http.Client{Timeout: timeout},
	}
}

func (f *httpForwarder) Forward(ctx context.Context, webhookURL string, payload model.ForwardPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal forward payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()

	// Body content is ignored; a 2xx status is the only success signal.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook failed with status: %d", resp.StatusCode)
	}
	return nil
}
