package logger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// RemoteOptions tunes the queue in front of a remote sink.
type RemoteOptions struct {
	QueueSize    int           // default 1024
	FlushTimeout time.Duration // default 5s, used when Shutdown gets no deadline
}

// remoteQueue delivers records to remote handlers on one goroutine.
// A full queue drops records rather than blocking the caller.
type remoteQueue struct {
	mu      sync.RWMutex
	closed  bool
	ch      chan queuedRecord
	done    chan struct{}
	dropped atomic.Uint64
	flush   time.Duration
}

type queuedRecord struct {
	ctx     context.Context
	handler slog.Handler
	record  slog.Record
}

func newRemoteQueue(opts RemoteOptions) *remoteQueue {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = 5 * time.Second
	}
	q := &remoteQueue{
		ch:    make(chan queuedRecord, opts.QueueSize),
		done:  make(chan struct{}),
		flush: opts.FlushTimeout,
	}
	go func() {
		defer close(q.done)
		for rec := range q.ch {
			_ = rec.handler.Handle(rec.ctx, rec.record)
		}
	}()
	return q
}

func (q *remoteQueue) push(rec queuedRecord) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.ch <- rec:
	default:
		q.dropped.Add(1)
	}
}

func (q *remoteQueue) close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.flush)
		defer cancel()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TeeHandler writes each record to a local handler and queues a copy for
// a remote one, so a slow log backend never holds up a webhook.
type TeeHandler struct {
	local  slog.Handler
	remote slog.Handler
	queue  *remoteQueue
}

// NewTeeHandler creates a tee. remote may be nil, in which case records
// only reach local.
func NewTeeHandler(local, remote slog.Handler, opts RemoteOptions) *TeeHandler {
	h := &TeeHandler{local: local, remote: remote}
	if remote != nil {
		h.queue = newRemoteQueue(opts)
	}
	return h
}

// Enabled reports whether either side accepts level.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.local.Enabled(ctx, level) || (h.remote != nil && h.remote.Enabled(ctx, level))
}

// Handle writes r locally and enqueues a clone for the remote side.
// Cancellation of ctx does not stop remote delivery.
func (h *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.local.Enabled(ctx, r.Level) {
		err = h.local.Handle(ctx, r.Clone())
	}
	if h.remote != nil && h.remote.Enabled(ctx, r.Level) {
		h.queue.push(queuedRecord{ctx: context.WithoutCancel(ctx), handler: h.remote, record: r.Clone()})
	}
	return err
}

// WithAttrs applies attrs to both sides; the queue is shared.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.local = h.local.WithAttrs(attrs)
	if h.remote != nil {
		next.remote = h.remote.WithAttrs(attrs)
	}
	return &next
}

// WithGroup applies the group to both sides; the queue is shared.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.local = h.local.WithGroup(name)
	if h.remote != nil {
		next.remote = h.remote.WithGroup(name)
	}
	return &next
}

// Dropped returns how many remote records were discarded on a full queue.
func (h *TeeHandler) Dropped() uint64 {
	if h.queue == nil {
		return 0
	}
	return h.queue.dropped.Load()
}

// Shutdown drains the remote queue. Records logged afterwards stay local.
func (h *TeeHandler) Shutdown(ctx context.Context) error {
	if h == nil || h.queue == nil {
		return nil
	}
	if err := h.queue.close(ctx); err != nil {
		return errors.Join(errors.New("logger: remote queue not drained"), err)
	}
	return nil
}
