// Package context provides context utilities for Rice Eval.
package context

import (
	"context"
)

type contextKey string

const (
	// CorrelationIDKey is the context key for the ID shared by all events
	// and log lines of one evaluation.
	CorrelationIDKey contextKey = "correlation_id"
)

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// GetCorrelationID retrieves the correlation ID from context.
// Returns empty string if not found.
func GetCorrelationID(ctx context.Context) string {
	if correlationID, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return correlationID
	}
	return ""
}
