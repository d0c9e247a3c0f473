package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GenerateRunID creates a new unique run identifier using UUID v4
func GenerateRunID() string {
	return uuid.New().String()
}

// NewRunContext returns a context carrying a fresh run ID as its trace ID
func NewRunContext(ctx context.Context) context.Context {
	return WithTraceID(ctx, GenerateRunID())
}

// EnsureTraceID ensures the context has a trace ID, generating one if needed
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		return NewRunContext(ctx)
	}
	return ctx
}

// WithComponent creates a logger with a component field
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = GetLogger()
	}
	return logger.With(slog.String("component", component))
}

// WithSite creates a logger scoped to one site or project
func WithSite(logger *slog.Logger, site string) *slog.Logger {
	return logger.With(slog.String("site", site))
}
