// Package sentry initializes the Sentry SDK against Better Stack's
// error collection backend and offers small capture helpers.
package sentry

import (
	"context"
	"fmt"
	"maps"
	"net/url"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/garyellow/komida-linebot-go/internal/ctxutil"
)

// Config holds Sentry configuration for Better Stack integration.
type Config struct {
	// Token is the Better Stack Errors application token.
	Token string

	// Host is the Better Stack Errors ingesting host (e.g., "errors.betterstack.com").
	Host string

	Environment string
	Release     string
	ServerName  string

	// SampleRate controls error sampling (0.0-1.0, default 1.0 = 100%).
	SampleRate float64

	Debug bool
}

// Initialize sets up the Sentry SDK. An empty Token disables Sentry.
// Better Stack accepts a Sentry DSN of the form https://TOKEN@HOST/1.
func Initialize(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}
	if cfg.Host == "" {
		return fmt.Errorf("sentry host is required when token is provided")
	}

	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              (&url.URL{Scheme: "https", User: url.User(cfg.Token), Host: cfg.Host, Path: "/1"}).String(),
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		ServerName:       cfg.ServerName,
		SampleRate:       rate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
}

// Flush waits up to timeout for queued events and reports whether all were sent.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled reports whether a client is installed on the global hub.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// Capture reports err on the hub bound to ctx, falling back to the global
// hub. The chat and request IDs in ctx become tags next to tags.
func Capture(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(eventTags(ctx, tags))
		hub.CaptureException(err)
	})
}

// Detach copies the request hub of from, if any, onto to. Work that
// outlives the request then still reports on a hub of its own.
func Detach(from, to context.Context) context.Context {
	if hub := sentry.GetHubFromContext(from); hub != nil {
		return sentry.SetHubOnContext(to, hub.Clone())
	}
	return to
}

func eventTags(ctx context.Context, extra map[string]string) map[string]string {
	tags := make(map[string]string, len(extra)+2)
	if chatID := ctxutil.GetChatID(ctx); chatID != "" {
		tags["chat_id"] = chatID
	}
	if requestID, ok := ctxutil.GetRequestID(ctx); ok {
		tags["request_id"] = requestID
	}
	maps.Copy(tags, extra)
	return tags
}
