// Package ctxutil carries the tracing values of a webhook event (user,
// chat, request and event IDs) through a context.
package ctxutil

import "context"

type contextKey string

const (
	userIDKey    contextKey = "ctxutil.userID"
	chatIDKey    contextKey = "ctxutil.chatID"
	requestIDKey contextKey = "ctxutil.requestID"
	eventIDKey   contextKey = "ctxutil.eventID"
)

// WithUserID adds the sender's user ID to the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the user ID, or "" when absent.
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, userIDKey)
}

// WithChatID adds a chat ID to the context.
// The chat ID is the channel a reply goes to: a user, group or room in LINE.
func WithChatID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, chatIDKey, chatID)
}

// GetChatID returns the chat ID, or "" when absent.
func GetChatID(ctx context.Context) string {
	return stringValue(ctx, chatIDKey)
}

// WithRequestID adds the HTTP request ID used for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID and whether one was set.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok && requestID != ""
}

// WithEventID adds the LINE webhook event ID.
func WithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, eventIDKey, eventID)
}

// GetEventID returns the webhook event ID, or "" when absent.
func GetEventID(ctx context.Context) string {
	return stringValue(ctx, eventIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// tracingKeys are the values PreserveTracing carries over.
var tracingKeys = [...]contextKey{userIDKey, chatIDKey, requestIDKey, eventIDKey}

// PreserveTracing returns a background context holding only the tracing
// values of ctx. It is never canceled, so webhook events can be processed
// after the HTTP response has been written.
func PreserveTracing(ctx context.Context) context.Context {
	detached := context.Background()
	for _, key := range tracingKeys {
		if v := stringValue(ctx, key); v != "" {
			detached = context.WithValue(detached, key, v)
		}
	}
	return detached
}
