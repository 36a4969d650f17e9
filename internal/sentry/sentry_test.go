package sentry

import (
	"context"
	"errors"
	"testing"
	"time"

	sentrygo "github.com/getsentry/sentry-go"

	"github.com/garyellow/komida-linebot-go/internal/ctxutil"
)

func TestInitialize_EmptyToken(t *testing.T) {
	t.Parallel()

	if err := Initialize(Config{Token: ""}); err != nil {
		t.Errorf("Expected nil error for empty token, got %v", err)
	}
}

func TestInitialize_MissingHost(t *testing.T) {
	t.Parallel()

	if err := Initialize(Config{Token: "test-token", Host: ""}); err == nil {
		t.Error("Expected error when host is missing")
	}
}

func TestInitialize_ValidConfig(t *testing.T) {
	// Sentry uses global state; not parallel.
	err := Initialize(Config{
		Token:       "test-token",
		Host:        "errors.betterstack.com",
		Environment: "test",
		Release:     "komida-linebot@test",
		ServerName:  "komida-test",
	})
	if err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}

	if !IsEnabled() {
		t.Error("Expected IsEnabled() to return true after initialization")
	}

	// Capture helpers must not panic with or without a request hub.
	Capture(context.Background(), errors.New("refresh failed"), map[string]string{"stage": "refresh"})
	Capture(context.Background(), nil, nil)

	Flush(time.Second)
}

func TestEventTags(t *testing.T) {
	t.Parallel()

	ctx := ctxutil.WithChatID(context.Background(), "C123")
	ctx = ctxutil.WithRequestID(ctx, "req-1")

	tags := eventTags(ctx, map[string]string{"stage": "lookup"})
	want := map[string]string{"chat_id": "C123", "request_id": "req-1", "stage": "lookup"}
	if len(tags) != len(want) {
		t.Fatalf("eventTags() = %v, want %v", tags, want)
	}
	for k, v := range want {
		if tags[k] != v {
			t.Errorf("tag %s = %q, want %q", k, tags[k], v)
		}
	}

	if got := eventTags(context.Background(), nil); len(got) != 0 {
		t.Errorf("eventTags() without context values = %v", got)
	}
}

func TestDetach(t *testing.T) {
	t.Parallel()

	to := context.Background()
	if got := Detach(context.Background(), to); got != to {
		t.Error("Detach without a hub should return the target unchanged")
	}

	hub := sentrygo.NewHub(nil, sentrygo.NewScope())
	from := sentrygo.SetHubOnContext(context.Background(), hub)
	got := sentrygo.GetHubFromContext(Detach(from, to))
	if got == nil || got == hub {
		t.Error("Detach should attach a clone of the request hub")
	}
}

func TestFlush(t *testing.T) {
	t.Parallel()

	if !Flush(100 * time.Millisecond) {
		t.Error("Expected Flush to return true when no events pending")
	}
}
