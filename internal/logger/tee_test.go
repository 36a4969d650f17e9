package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// sinkHandler collects messages; safe for concurrent use.
type sinkHandler struct {
	mu       sync.Mutex
	messages []string
	attrs    []slog.Attr
	level    slog.Level
	delay    time.Duration
	block    chan struct{}
}

func (h *sinkHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *sinkHandler) Handle(_ context.Context, r slog.Record) error {
	if h.block != nil {
		<-h.block
	}
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, r.Message)
	return nil
}

func (h *sinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	h.attrs = append(h.attrs, attrs...)
	h.mu.Unlock()
	return h
}

func (h *sinkHandler) WithGroup(string) slog.Handler { return h }

func (h *sinkHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

func TestTeeHandler_LocalOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewTeeHandler(slog.NewJSONHandler(&buf, nil), nil, RemoteOptions{})
	slog.New(h).Info("menu served")

	if !bytes.Contains(buf.Bytes(), []byte("menu served")) {
		t.Errorf("local handler did not receive record: %s", buf.String())
	}
	if err := h.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() without remote = %v", err)
	}
	if h.Dropped() != 0 {
		t.Error("Dropped() should be 0 without remote")
	}
}

func TestTeeHandler_RemoteLevelAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	remote := &sinkHandler{level: slog.LevelWarn}
	h := NewTeeHandler(slog.NewJSONHandler(&buf, nil), remote, RemoteOptions{QueueSize: 16})

	log := slog.New(h.WithAttrs([]slog.Attr{slog.String("module", "snapshot")}))
	log.Info("snapshot loaded")
	log.Warn("snapshot poll failed")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if got := remote.count(); got != 1 {
		t.Errorf("remote got %d records, want 1 (warn only)", got)
	}
	if len(remote.attrs) != 1 || remote.attrs[0].Key != "module" {
		t.Errorf("remote attrs = %v", remote.attrs)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("local got %d records, want 2", len(lines))
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if entry["module"] != "snapshot" {
		t.Errorf("Expected module='snapshot', got %v", entry["module"])
	}
}

func TestTeeHandler_FlushOnShutdown(t *testing.T) {
	t.Parallel()

	remote := &sinkHandler{delay: time.Millisecond}
	var buf bytes.Buffer
	h := NewTeeHandler(slog.NewJSONHandler(&buf, nil), remote, RemoteOptions{QueueSize: 64})
	log := slog.New(h)

	for range 20 {
		log.Info("queued")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := remote.count(); got != 20 {
		t.Errorf("flushed %d records, want 20", got)
	}

	// After shutdown records stay local and a second shutdown is a no-op.
	log.Info("late")
	if err := h.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if got := remote.count(); got != 20 {
		t.Errorf("late record reached remote, count = %d", got)
	}
	if !bytes.Contains(buf.Bytes(), []byte("late")) {
		t.Error("late record should still be written locally")
	}
}

func TestTeeHandler_DropsWhenFull(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	remote := &sinkHandler{block: release}
	var buf bytes.Buffer
	h := NewTeeHandler(slog.NewJSONHandler(&buf, nil), remote, RemoteOptions{QueueSize: 1})
	log := slog.New(h)

	// The worker holds at most one record and the queue one more.
	for range 10 {
		log.Info("burst")
	}
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if h.Dropped() < 8 {
		t.Errorf("Dropped() = %d, want at least 8", h.Dropped())
	}
	if got := remote.count() + int(h.Dropped()); got != 10 {
		t.Errorf("handled + dropped = %d, want 10", got)
	}
}

func TestTeeHandler_ShutdownTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)
	h := NewTeeHandler(slog.NewJSONHandler(&bytes.Buffer{}, nil), &sinkHandler{block: release}, RemoteOptions{})
	slog.New(h).Info("stuck")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := h.Shutdown(ctx); err == nil {
		t.Error("Shutdown() should fail while the remote sink is blocked")
	}
}
