package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Business context (message_id, function_id) flows through context
// enrichment so individual log statements don't repeat it.
type LogFields struct {
	MessageID  *string // correlation id for an in-flight send
	FunctionID *string // agent function the message belongs to
	Component  string  // component name (e.g. "relay.service", "relay.poller")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, incoming LogFields) LogFields {
	result := existing

	if incoming.MessageID != nil {
		result.MessageID = incoming.MessageID
	}
	if incoming.FunctionID != nil {
		result.FunctionID = incoming.FunctionID
	}
	if incoming.Component != "" {
		result.Component = incoming.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{MessageID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long agent outputs.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
