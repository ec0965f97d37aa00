package common

import "context"

// ContextKey is the type of keys the API stores in request contexts.
type ContextKey string

// RequestIDContextKey holds the id assigned to a request for tracing.
const RequestIDContextKey ContextKey = "request_id"

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDContextKey, id)
}

// RequestID returns the request id stored in ctx, or "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}
