package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"umbra.legal/relay/common/logger"
	"umbra.legal/relay/internal/http/dto"
	"umbra.legal/relay/internal/service"
)

type RelayHandler struct {
	service service.RelayService
}

func NewRelayHandler(svc service.RelayService) *RelayHandler {
	return &RelayHandler{service: svc}
}

func (h *RelayHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *RelayHandler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid send request", "error", err)
		c.JSON(http.StatusBadRequest, dto.SendMessageResponse{
			Success: false,
			Error:   err.Error(),
			Status:  "error",
		})
		return
	}

	params := service.SendParams{
		Message:    req.Message,
		FunctionID: req.FunctionID,
		MessageID:  req.MessageID,
		WebhookURL: req.Webhook,
	}
	if req.Context != nil {
		params.Context = &service.SendContext{
			ActiveModule:     req.Context.ActiveModule,
			FunctionName:     req.Context.FunctionName,
			PreviousMessages: req.Context.PreviousMessages,
		}
	}

	result, err := h.service.SendMessage(ctx, params)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrValidation) {
			status = http.StatusBadRequest
		} else {
			slog.ErrorContext(ctx, "send failed", "error", err, "message_id", req.MessageID)
		}
		c.JSON(status, dto.SendMessageResponse{
			Success:   false,
			Error:     err.Error(),
			MessageID: req.MessageID,
			Status:    "error",
		})
		return
	}

	c.JSON(http.StatusOK, dto.SendMessageResponse{
		Success:   true,
		MessageID: result.MessageID,
		Status:    result.Status,
	})
}

// ReceiveResponse accepts workflow replies in two variants: a structured JSON
// body, or a raw text body with correlation ids in headers or query params.
// Malformed bodies are tolerated via defaulting rather than rejected; losing
// a real reply is worse than storing a sparse one.
func (h *RelayHandler) ReceiveResponse(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.WebhookResponseResponse{Success: false, Error: "failed to read request body"})
		return
	}

	params := parseWorkflowReply(c, body)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID:  logger.Ptr(params.MessageID),
		FunctionID: logger.Ptr(params.FunctionID),
	})
	slog.InfoContext(ctx, "received workflow reply", "output", logger.Truncate(params.Output, 100))

	if _, err := h.service.ReceiveResponse(ctx, params); err != nil {
		slog.ErrorContext(ctx, "failed to buffer response", "error", err)
		c.JSON(http.StatusInternalServerError, dto.WebhookResponseResponse{Success: false, Error: "failed to store response"})
		return
	}

	c.JSON(http.StatusOK, dto.WebhookResponseResponse{Success: true, Received: true})
}

// parseWorkflowReply attempts the structured variant first and falls back to
// the raw-text variant, each with its own defaulting rules.
func parseWorkflowReply(c *gin.Context, body []byte) service.ReceiveParams {
	var req dto.WebhookResponseRequest
	if err := json.Unmarshal(body, &req); err == nil {
		params := service.ReceiveParams{
			MessageID:  req.MessageID,
			FunctionID: req.FunctionID,
			Output:     req.Output,
			Timestamp:  req.Timestamp,
			Metadata:   req.Metadata,
		}
		// Structured bodies may still omit the correlation ids.
		if params.MessageID == "" {
			params.MessageID = correlationParam(c, "X-Message-Id", "messageId")
		}
		if params.FunctionID == "" {
			params.FunctionID = correlationParam(c, "X-Function-Id", "functionId")
		}
		return params
	}

	return service.ReceiveParams{
		MessageID:  correlationParam(c, "X-Message-Id", "messageId"),
		FunctionID: correlationParam(c, "X-Function-Id", "functionId"),
		Output:     strings.TrimSpace(string(body)),
	}
}

func correlationParam(c *gin.Context, header, query string) string {
	if v := c.GetHeader(header); v != "" {
		return v
	}
	return c.Query(query)
}

func (h *RelayHandler) PendingResponses(c *gin.Context) {
	ctx := c.Request.Context()

	responses, err := h.service.DrainResponses(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "drain failed", "error", err)
		c.JSON(http.StatusInternalServerError, dto.PendingResponsesResponse{Responses: nil, Count: 0})
		return
	}

	c.JSON(http.StatusOK, dto.PendingResponsesResponse{
		Responses: responses,
		Count:     len(responses),
	})
}

func (h *RelayHandler) MessageStatus(c *gin.Context) {
	ctx := c.Request.Context()

	result, err := h.service.Status(ctx, c.Param("messageId"))
	if err != nil {
		slog.ErrorContext(ctx, "status check failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "failed to check status"})
		return
	}

	c.JSON(http.StatusOK, dto.MessageStatusResponse{
		Status:      result.Status,
		HasResponse: result.HasResponse,
	})
}

func (h *RelayHandler) ClearCache(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.service.ClearAll(ctx); err != nil {
		slog.ErrorContext(ctx, "clear failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to clear cache"})
		return
	}

	c.JSON(http.StatusOK, dto.ClearCacheResponse{Success: true})
}
