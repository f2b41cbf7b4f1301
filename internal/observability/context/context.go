// Package context carries request-scoped correlation identifiers.
package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type schoolIDKey struct{}
type actorKey struct{}

type actor struct {
	Type string
	ID   string
}

// WithRequestID stores the request id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

// RequestIDFromContext returns the request id, or empty.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithSchoolID stores the active school id in the context.
func WithSchoolID(ctx context.Context, schoolID string) context.Context {
	return context.WithValue(ctx, schoolIDKey{}, strings.TrimSpace(schoolID))
}

// SchoolIDFromContext returns the active school id, or empty.
func SchoolIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(schoolIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithActor stores the acting identity in the context.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{
		Type: strings.TrimSpace(actorType),
		ID:   strings.TrimSpace(actorID),
	})
}

// ActorFromContext returns the acting identity, or empty values.
func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	if a, ok := ctx.Value(actorKey{}).(actor); ok {
		return a.Type, a.ID
	}
	return "", ""
}
