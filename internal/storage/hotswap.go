package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultSwapCloseDelay is how long a replaced database stays open so that
// lookups which fetched its pool just before the swap can finish.
const DefaultSwapCloseDelay = 30 * time.Second

// HotSwapDB wraps a DB with thread-safe hot-swap capability.
// Readers take a read lock only long enough to fetch the current pool.
type HotSwapDB struct {
	mu         sync.RWMutex
	current    *DB
	closeDelay time.Duration
	swaps      int
}

// NewHotSwapDB opens the initial database at dbPath.
func NewHotSwapDB(ctx context.Context, dbPath string) (*HotSwapDB, error) {
	db, err := New(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("hotswap: create initial db: %w", err)
	}
	return &HotSwapDB{current: db, closeDelay: DefaultSwapCloseDelay}, nil
}

// SetCloseDelay overrides the delay before a replaced database is closed.
func (h *HotSwapDB) SetCloseDelay(d time.Duration) {
	h.mu.Lock()
	h.closeDelay = d
	h.mu.Unlock()
}

// DB returns the current database handle.
func (h *HotSwapDB) DB() *DB {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Swap validates the database at newPath and makes it current.
// The old database is closed after the close delay and its files removed
// when they differ from the new path.
func (h *HotSwapDB) Swap(ctx context.Context, newPath string) error {
	next, err := New(ctx, newPath)
	if err != nil {
		return fmt.Errorf("hotswap: open new db: %w", err)
	}

	if _, err := NewMenuRepository(next).CountItems(ctx); err != nil {
		_ = next.Close()
		return fmt.Errorf("hotswap: validate new db: %w", err)
	}

	h.mu.Lock()
	old := h.current
	h.current = next
	h.swaps++
	delay := h.closeDelay
	h.mu.Unlock()

	retire := func() {
		if err := old.Close(); err != nil {
			slog.Warn("Failed to close replaced database", "path", old.Path(), "error", err)
		}
		if old.Path() != newPath && old.Path() != memoryPath {
			removeDBFiles(old.Path())
		}
	}
	if delay <= 0 {
		retire()
	} else {
		time.AfterFunc(delay, retire)
	}

	slog.Info("Database hot-swapped", "old_path", old.Path(), "new_path", newPath)
	return nil
}

func removeDBFiles(path string) {
	_ = os.Remove(path)
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")
}

// Swaps returns how many swaps have completed.
func (h *HotSwapDB) Swaps() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.swaps
}

// Path returns the current database file path.
func (h *HotSwapDB) Path() string {
	return h.DB().Path()
}

// Reader returns the reader pool of the current database.
func (h *HotSwapDB) Reader() *sql.DB {
	return h.DB().Reader()
}

// Writer returns the writer pool of the current database.
func (h *HotSwapDB) Writer() *sql.DB {
	return h.DB().Writer()
}

// Ping checks the current database.
func (h *HotSwapDB) Ping(ctx context.Context) error {
	return h.DB().Ping(ctx)
}

// Close closes the current database.
func (h *HotSwapDB) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil {
		return h.current.Close()
	}
	return nil
}
