// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here so that
// middleware and handlers agree on what travels with a request.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RequestIDKey contains the request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: request logging, audit trail
	RequestIDKey Key = "request_id"

	// ActorKey contains the acting user ID string
	// Set by: httputil middleware from the actor header
	// Used by: request logging, audit trail
	ActorKey Key = "actor_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithActor adds the acting user ID to the context
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorKey, actorID)
}

// RequestID retrieves the request ID from the context
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// Actor retrieves the acting user ID from the context
func Actor(ctx context.Context) string {
	if actorID, ok := ctx.Value(ActorKey).(string); ok {
		return actorID
	}
	return ""
}
