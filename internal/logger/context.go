package logger

import "context"

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{ name string }

var (
	requestIDKey = contextKey{"request_id"}
	messageIDKey = contextKey{"message_id"}
	threadIDKey  = contextKey{"thread_id"}
)

// WithRequestID returns a new context carrying the HTTP request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the HTTP request ID from the context.
// Returns an empty string if none is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithMessageID returns a new context carrying the inbound message ID.
func WithMessageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, messageIDKey, id)
}

// MessageID extracts the inbound message ID from the context.
// Returns an empty string if none is set.
func MessageID(ctx context.Context) string {
	id, _ := ctx.Value(messageIDKey).(string)
	return id
}

// WithThreadID returns a new context carrying the negotiation thread ID.
func WithThreadID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, threadIDKey, id)
}

// ThreadID extracts the negotiation thread ID from the context.
// Returns an empty string if none is set.
func ThreadID(ctx context.Context) string {
	id, _ := ctx.Value(threadIDKey).(string)
	return id
}
