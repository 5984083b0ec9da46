package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"umbra.legal/relay/common/id"
	"umbra.legal/relay/common/logger"
	"umbra.legal/relay/internal/model"
	"umbra.legal/relay/internal/store"
)

// ErrValidation marks a request rejected for a missing required field.
var ErrValidation = errors.New("validation")

// ErrForward marks an upstream webhook delivery failure. The pending record
// is left in place for TTL expiry; forwards are never retried automatically.
var ErrForward = errors.New("forward")

type SendParams struct {
	Message    string
	FunctionID string
	MessageID  string
	WebhookURL string
	Context    *SendContext
}

// SendContext is the optional conversation context attached by the dashboard.
type SendContext struct {
	ActiveModule     int
	FunctionName     string
	PreviousMessages []model.Message
}

type SendResult struct {
	MessageID string
	Status    string
}

type ReceiveParams struct {
	MessageID  string
	FunctionID string
	Output     string
	Timestamp  *time.Time
	Metadata   *model.ResponseMetadata
}

type StatusResult struct {
	Status      string
	HasResponse bool
}

// RelayService correlates outbound sends with asynchronous inbound replies
// through the correlation store.
type RelayService interface {
	SendMessage(ctx context.Context, params SendParams) (*SendResult, error)
	ReceiveResponse(ctx context.Context, params ReceiveParams) (*model.BufferedResponse, error)
	DrainResponses(ctx context.Context) ([]model.BufferedResponse, error)
	Status(ctx context.Context, messageID string) (*StatusResult, error)
	ClearAll(ctx context.Context) error
}

type RelayConfig struct {
	// PublicBaseURL is this relay's externally reachable base URL, used to
	// build the responseWebhook advertised to workflows.
	PublicBaseURL string
	PendingTTL    time.Duration
}

type relayService struct {
	kv        store.KV
	forwarder Forwarder
	cfg       RelayConfig
	logger    *slog.Logger
}

func NewRelayService(kv store.KV, forwarder Forwarder, cfg RelayConfig, log *slog.Logger) RelayService {
	if log == nil {
		log = slog.Default()
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 300 * time.Second
	}
	return &relayService{
		kv:        kv,
		forwarder: forwarder,
		cfg:       cfg,
		logger:    log,
	}
}

func (s *relayService) SendMessage(ctx context.Context, params SendParams) (*SendResult, error) {
	if params.Message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}
	if params.FunctionID == "" {
		return nil, fmt.Errorf("%w: functionId is required", ErrValidation)
	}
	if params.WebhookURL == "" {
		return nil, fmt.Errorf("%w: webhook is required", ErrValidation)
	}
	messageID := params.MessageID
	if messageID == "" {
		messageID = id.NewServerMessageID("user")
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID:  logger.Ptr(messageID),
		FunctionID: logger.Ptr(params.FunctionID),
	})

	now := time.Now().UTC()
	payload := s.buildPayload(params, messageID, now)

	pending := model.PendingSend{
		MessageID:  messageID,
		FunctionID: params.FunctionID,
		Timestamp:  now,
		Status:     "sent",
	}
	if err := s.kv.Put(ctx, store.KindPending, messageID, pending, s.cfg.PendingTTL); err != nil {
		return nil, fmt.Errorf("storing pending send: %w", err)
	}

	// The pending marker is deliberately not rolled back on failure; it
	// expires with its TTL and the status endpoint reports "unknown" after.
	if err := s.forwarder.Forward(ctx, params.WebhookURL, payload); err != nil {
		s.logger.ErrorContext(ctx, "webhook forward failed", "error", err, "webhook", params.WebhookURL)
		return nil, fmt.Errorf("%w: %v", ErrForward, err)
	}

	s.logger.InfoContext(ctx, "message forwarded", "webhook", params.WebhookURL)
	return &SendResult{MessageID: messageID, Status: "sent"}, nil
}

func (s *relayService) buildPayload(params SendParams, messageID string, now time.Time) model.ForwardPayload {
	sendCtx := SendContext{}
	if params.Context != nil {
		sendCtx = *params.Context
	}
	if sendCtx.ActiveModule == 0 {
		sendCtx.ActiveModule = 1
	}
	if sendCtx.FunctionName == "" {
		sendCtx.FunctionName = "Unknown Function"
	}
	previous := sendCtx.PreviousMessages
	if previous == nil {
		previous = []model.Message{}
	}

	return model.ForwardPayload{
		Message:         params.Message,
		FunctionID:      params.FunctionID,
		MessageID:       messageID,
		Timestamp:       now.Format(time.RFC3339),
		User:            model.ForwardUser,
		ResponseWebhook: s.cfg.PublicBaseURL + "/api/webhook-responses",
		Context: model.ForwardContext{
			ActiveModule: sendCtx.ActiveModule,
			FunctionName: sendCtx.FunctionName,
			SessionData:  model.SessionData{PreviousMessages: previous},
		},
		WebhookConfig: model.DefaultWebhookConfig(),
	}
}

func (s *relayService) ReceiveResponse(ctx context.Context, params ReceiveParams) (*model.BufferedResponse, error) {
	messageID := params.MessageID
	if messageID == "" {
		messageID = model.SentinelMessageID
	}
	functionID := params.FunctionID
	if functionID == "" {
		functionID = model.PlaceholderFunction
	}
	output := params.Output
	if output == "" {
		output = model.DefaultOutput
	}
	timestamp := time.Now().UTC()
	if params.Timestamp != nil {
		timestamp = *params.Timestamp
	}
	metadata := params.Metadata
	if metadata == nil {
		metadata = model.DefaultMetadata()
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID:  logger.Ptr(messageID),
		FunctionID: logger.Ptr(functionID),
	})

	response := model.BufferedResponse{
		MessageID:  messageID,
		Output:     output,
		FunctionID: functionID,
		Timestamp:  timestamp,
		Metadata:   metadata,
	}
	if err := s.kv.Put(ctx, store.KindResponse, messageID, response, s.cfg.PendingTTL); err != nil {
		return nil, fmt.Errorf("storing response: %w", err)
	}

	// Pending delete must follow the response write so status never regresses
	// from delivered back to unknown. Idempotent if the marker is gone.
	if err := s.kv.Delete(ctx, store.KindPending, messageID); err != nil {
		s.logger.WarnContext(ctx, "failed to delete pending marker", "error", err)
	}

	s.logger.InfoContext(ctx, "response buffered", "output", logger.Truncate(output, 100))
	return &response, nil
}

func (s *relayService) DrainResponses(ctx context.Context) ([]model.BufferedResponse, error) {
	ids, err := s.kv.ListIDs(ctx, store.KindResponse)
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}

	responses := make([]model.BufferedResponse, 0, len(ids))
	for _, messageID := range ids {
		var response model.BufferedResponse
		if err := s.kv.Take(ctx, store.KindResponse, messageID, &response); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Another drainer won the race for this key.
				continue
			}
			return nil, fmt.Errorf("taking response %s: %w", messageID, err)
		}
		responses = append(responses, response)
	}

	if len(responses) > 0 {
		s.logger.InfoContext(ctx, "drained responses", "count", len(responses))
	}
	return responses, nil
}

func (s *relayService) Status(ctx context.Context, messageID string) (*StatusResult, error) {
	var response model.BufferedResponse
	err := s.kv.Get(ctx, store.KindResponse, messageID, &response)
	if err == nil {
		return &StatusResult{Status: model.DeliveryDelivered, HasResponse: true}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking response: %w", err)
	}

	var pending model.PendingSend
	err = s.kv.Get(ctx, store.KindPending, messageID, &pending)
	if err == nil {
		return &StatusResult{Status: model.DeliverySent, HasResponse: false}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking pending: %w", err)
	}

	return &StatusResult{Status: model.DeliveryUnknown, HasResponse: false}, nil
}

func (s *relayService) ClearAll(ctx context.Context) error {
	if err := s.kv.FlushAll(ctx); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}
	s.logger.InfoContext(ctx, "correlation store cleared")
	return nil
}
