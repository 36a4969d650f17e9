// Package refresh provides the "run now" trigger the bot uses when a menu
// lookup comes back empty. Failures are returned as *errors.RefreshError
// values; callers log them and carry on.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	domerrors "github.com/garyellow/komida-linebot-go/internal/errors"
	"github.com/garyellow/komida-linebot-go/internal/metrics"
	"github.com/garyellow/komida-linebot-go/internal/snapshot"
)

// Refresher populates the menu store on demand.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Source performs one refresh and reports whether data changed.
// *snapshot.Manager satisfies it.
type Source interface {
	Refresh(ctx context.Context) (bool, error)
}

// Noop is used when no refresh source is configured.
type Noop struct{}

// Refresh does nothing.
func (Noop) Refresh(context.Context) error { return nil }

// Coalescer runs at most one refresh at a time. Callers arriving while a
// refresh is in flight wait for it and share its result.
type Coalescer struct {
	source  Source
	name    string
	timeout time.Duration
	metrics *metrics.Metrics
	group   singleflight.Group
}

// Option configures a Coalescer.
type Option func(*Coalescer)

// WithTimeout bounds each refresh independently of the callers' contexts.
func WithTimeout(d time.Duration) Option {
	return func(c *Coalescer) { c.timeout = d }
}

// WithMetrics records refresh outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coalescer) { c.metrics = m }
}

// NewCoalescer wraps source. name identifies it in logs and errors.
func NewCoalescer(name string, source Source, opts ...Option) *Coalescer {
	c := &Coalescer{source: source, name: name}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh triggers a refresh, or joins the one already running. It returns
// nil or a *errors.RefreshError. A caller whose ctx ends first stops waiting
// but the shared refresh keeps running for the others.
func (c *Coalescer) Refresh(ctx context.Context) error {
	ch := c.group.DoChan(c.name, func() (any, error) {
		return nil, c.run(ctx)
	})

	select {
	case res := <-ch:
		if res.Shared && c.metrics != nil {
			c.metrics.RecordRefreshShared()
		}
		return res.Err
	case <-ctx.Done():
		return domerrors.NewRefreshError(c.name, ctx.Err())
	}
}

func (c *Coalescer) run(ctx context.Context) error {
	// The first caller's cancellation must not abort a refresh other
	// callers are waiting on.
	runCtx := context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	updated, err := c.source.Refresh(runCtx)
	duration := time.Since(start)

	status := "unchanged"
	switch {
	case err != nil:
		status = "error"
	case updated:
		status = "updated"
	}
	if c.metrics != nil {
		c.metrics.RecordRefresh(status, duration.Seconds())
	}

	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			err = errors.Join(domerrors.ErrNotFound, err)
		}
		return domerrors.NewRefreshError(c.name, err)
	}

	slog.InfoContext(ctx, "Menu data refreshed",
		"source", c.name,
		"status", status,
		"duration_ms", duration.Milliseconds())
	return nil
}
