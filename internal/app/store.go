package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyellow/komida-linebot-go/internal/bot"
	"github.com/garyellow/komida-linebot-go/internal/config"
	"github.com/garyellow/komida-linebot-go/internal/logger"
	"github.com/garyellow/komida-linebot-go/internal/menu"
	"github.com/garyellow/komida-linebot-go/internal/metrics"
	"github.com/garyellow/komida-linebot-go/internal/r2client"
	"github.com/garyellow/komida-linebot-go/internal/refresh"
	"github.com/garyellow/komida-linebot-go/internal/snapshot"
	"github.com/garyellow/komida-linebot-go/internal/storage"
	"github.com/garyellow/komida-linebot-go/internal/storage/pgstore"
)

// menuBackend is what the server needs from a menu store.
type menuBackend interface {
	bot.MenuFetcher
	CountItems(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// latestDater is implemented by stores that can report how far ahead menus go.
type latestDater interface {
	LatestDate(ctx context.Context) (menu.Date, bool, error)
}

// menuStore is the live menu backend plus its teardown.
type menuStore struct {
	menuBackend
	closeFn func()
}

// Close releases the backend.
func (s *menuStore) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// sqliteBackend reads through the hot-swappable SQLite store.
type sqliteBackend struct {
	*storage.MenuRepository
	hot *storage.HotSwapDB
}

func (b sqliteBackend) Ping(ctx context.Context) error {
	return b.hot.Ping(ctx)
}

func newSQLiteStore(hot *storage.HotSwapDB) *menuStore {
	return &menuStore{
		menuBackend: sqliteBackend{MenuRepository: storage.NewMenuRepository(hot), hot: hot},
		closeFn:     func() { _ = hot.Close() },
	}
}

// openStore opens PostgreSQL when DatabaseURL is set, otherwise the local
// SQLite store. With R2 configured the SQLite store is seeded from the
// latest snapshot and refreshes pull newer ones.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*menuStore, *snapshot.Manager, bot.Refresher, error) {
	if cfg.UsesPostgres() {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		log.Info("Using PostgreSQL menu store")
		return &menuStore{menuBackend: pg, closeFn: pg.Close}, nil, refresh.Noop{}, nil
	}

	if cfg.HasR2() {
		if n := snapshot.CleanupStale(cfg.DataDir, ""); n > 0 {
			log.WithField("count", n).Info("Removed stale snapshot files")
		}
	}

	hot, err := storage.NewHotSwapDB(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")
	store := newSQLiteStore(hot)

	if !cfg.HasR2() {
		return store, nil, refresh.Noop{}, nil
	}

	r2, err := r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2Endpoint,
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretKey,
		BucketName:  cfg.R2Bucket,
	})
	if err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("create R2 client: %w", err)
	}

	mgr := snapshot.New(r2, hot, snapshot.Config{
		SnapshotKey:  cfg.R2SnapshotKey,
		PollInterval: cfg.R2SnapshotPollInterval,
		DataDir:      cfg.DataDir,
	})

	startCtx, cancel := context.WithTimeout(ctx, config.SnapshotStartup)
	defer cancel()
	if _, err := mgr.Refresh(startCtx); err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			log.Info("No snapshot in R2 yet, starting with local store")
		} else {
			log.WithError(err).Warn("Initial snapshot load failed, starting with local store")
		}
	}

	refresher := refresh.NewCoalescer("snapshot", mgr,
		refresh.WithTimeout(config.SnapshotDownload),
		refresh.WithMetrics(m))

	return store, mgr, refresher, nil
}
