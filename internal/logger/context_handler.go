package logger

import (
	"context"
	"log/slog"

	"github.com/garyellow/komida-linebot-go/internal/ctxutil"
)

// tracingKeys lists the ctxutil values copied onto every record, in output order.
var tracingKeys = []struct {
	key string
	get func(context.Context) string
}{
	{"request_id", func(ctx context.Context) string { id, _ := ctxutil.GetRequestID(ctx); return id }},
	{"event_id", ctxutil.GetEventID},
	{"chat_id", ctxutil.GetChatID},
	{"user_id", ctxutil.GetUserID},
}

// ContextHandler adds the tracing values carried by the context to each
// record before passing it on.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, t := range tracingKeys {
		if v := t.get(ctx); v != "" {
			r.AddAttrs(slog.String(t.key, v))
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
