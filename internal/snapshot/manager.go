// Package snapshot keeps the local SQLite menu store in sync with a
// zstd-compressed snapshot in R2: pull on startup, poll for new ETags and
// hot-swap, and publish from menuctl.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/garyellow/komida-linebot-go/internal/r2client"
)

// ErrNotFound indicates no snapshot exists in R2.
var ErrNotFound = errors.New("snapshot: not found")

// ErrLocked is returned by Push while another publisher holds the lock.
var ErrLocked = errors.New("snapshot: publish lock held by another process")

// tempPrefix names downloaded snapshot files inside the data directory.
const tempPrefix = "snapshot_"

// Store is the object storage used by Manager. *r2client.Client satisfies it.
type Store interface {
	r2client.LockStore
	HeadObject(ctx context.Context, key string) (string, error)
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// Swapper replaces the live database with the file at path.
type Swapper interface {
	Swap(ctx context.Context, path string) error
}

// Source produces a consistent copy of a database at destPath.
type Source interface {
	CreateSnapshot(ctx context.Context, destPath string) error
}

// Config holds snapshot manager configuration.
type Config struct {
	SnapshotKey  string        // R2 object key, e.g. "snapshots/menu.db.zst"
	LockKey      string        // R2 object key of the publish lock
	LockTTL      time.Duration // Lease of the publish lock
	PollInterval time.Duration // How often to check for a new snapshot
	DataDir      string        // Where downloaded databases are written
}

// Manager handles SQLite snapshot synchronization with R2.
type Manager struct {
	store  Store
	swap   Swapper
	config Config

	refreshMu   sync.Mutex // one download and swap at a time
	mu          sync.RWMutex
	currentETag string

	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates a new snapshot manager. swap may be nil for publish-only use.
func New(store Store, swap Swapper, cfg Config) *Manager {
	if cfg.DataDir == "" {
		cfg.DataDir = os.TempDir()
	}
	if cfg.LockKey == "" {
		cfg.LockKey = cfg.SnapshotKey + ".lock"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &Manager{
		store:  store,
		swap:   swap,
		config: cfg,
	}
}

// Refresh loads the remote snapshot when its ETag differs from the one
// currently loaded. It reports whether the live store was replaced.
// Concurrent calls run one after another, so a caller that waited on a
// swap sees the new ETag and returns without downloading.
func (m *Manager) Refresh(ctx context.Context) (bool, error) {
	if m.swap == nil {
		return false, errors.New("snapshot: manager has no swap target")
	}

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	remoteETag, err := m.store.HeadObject(ctx, m.config.SnapshotKey)
	if err != nil {
		if errors.Is(err, r2client.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("head snapshot: %w", err)
	}
	if remoteETag != "" && remoteETag == m.CurrentETag() {
		return false, nil
	}

	path := filepath.Join(m.config.DataDir, fmt.Sprintf("%s%d.db", tempPrefix, time.Now().UnixNano()))
	etag, err := m.download(ctx, path)
	if err != nil {
		return false, err
	}

	if err := m.swap.Swap(ctx, path); err != nil {
		removeDBFiles(path)
		return false, fmt.Errorf("swap snapshot: %w", err)
	}

	m.SetCurrentETag(etag)
	slog.InfoContext(ctx, "Snapshot loaded",
		"etag", etag,
		"path", path)
	return true, nil
}

// Pull downloads the current snapshot to destPath and returns its ETag.
func (m *Manager) Pull(ctx context.Context, destPath string) (string, error) {
	return m.download(ctx, destPath)
}

func (m *Manager) download(ctx context.Context, destPath string) (string, error) {
	body, etag, err := m.store.Download(ctx, m.config.SnapshotKey)
	if err != nil {
		if errors.Is(err, r2client.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("download snapshot: %w", err)
	}
	defer body.Close()

	if err := r2client.DecompressStream(body, destPath); err != nil {
		removeDBFiles(destPath)
		return "", fmt.Errorf("decompress snapshot: %w", err)
	}
	return etag, nil
}

// Push publishes a snapshot of src under the publish lock and returns the
// new ETag. It fails with ErrLocked if another publisher is active.
func (m *Manager) Push(ctx context.Context, src Source) (string, error) {
	lock := r2client.NewDistributedLock(m.store, m.config.LockKey, m.config.LockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire publish lock: %w", err)
	}
	if !acquired {
		return "", ErrLocked
	}
	defer func() {
		// Release even if ctx was canceled mid-upload.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			slog.WarnContext(ctx, "Failed to release publish lock", "error", err)
		}
	}()

	rawPath := filepath.Join(m.config.DataDir, fmt.Sprintf("%spush_%d.db", tempPrefix, time.Now().UnixNano()))
	if err := src.CreateSnapshot(ctx, rawPath); err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(rawPath)

	compressedPath := rawPath + ".zst"
	if err := r2client.CompressFile(rawPath, compressedPath); err != nil {
		return "", fmt.Errorf("compress snapshot: %w", err)
	}
	defer os.Remove(compressedPath)

	f, err := os.Open(compressedPath)
	if err != nil {
		return "", fmt.Errorf("open compressed snapshot: %w", err)
	}
	defer f.Close()

	etag, err := m.store.Upload(ctx, m.config.SnapshotKey, f, "application/zstd")
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}

	m.SetCurrentETag(etag)
	return etag, nil
}

// StartPolling checks for a new snapshot every PollInterval until ctx is
// canceled or StopPolling is called.
func (m *Manager) StartPolling(ctx context.Context) {
	if m.config.PollInterval <= 0 || m.pollCancel != nil {
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	m.pollCancel = cancel
	m.pollDone = make(chan struct{})

	go func() {
		defer close(m.pollDone)

		ticker := time.NewTicker(m.config.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				slog.Info("Snapshot polling stopped")
				return
			case <-ticker.C:
				m.pollOnce(pollCtx)
			}
		}
	}()

	slog.Info("Snapshot polling started",
		"interval", m.config.PollInterval,
		"snapshot_key", m.config.SnapshotKey)
}

func (m *Manager) pollOnce(ctx context.Context) {
	if _, err := m.Refresh(ctx); err != nil && !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
		slog.WarnContext(ctx, "Snapshot poll failed", "error", err)
	}
}

// StopPolling stops the background polling goroutine and waits for it.
func (m *Manager) StopPolling() {
	if m.pollCancel != nil {
		m.pollCancel()
		<-m.pollDone
		m.pollCancel = nil
	}
}

// CurrentETag returns the ETag of the currently loaded snapshot.
func (m *Manager) CurrentETag() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentETag
}

// SetCurrentETag records the ETag of the loaded snapshot.
func (m *Manager) SetCurrentETag(etag string) {
	m.mu.Lock()
	m.currentETag = etag
	m.mu.Unlock()
}

// CleanupStale removes snapshot files left in dir by a previous process.
// keep is the path of the database in use, if any.
func CleanupStale(dir, keep string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, tempPrefix) {
			continue
		}
		path := filepath.Join(dir, name)
		if keep != "" && strings.HasPrefix(path, keep) {
			continue
		}
		if os.Remove(path) == nil {
			removed++
		}
	}
	return removed
}

func removeDBFiles(path string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
}
