package app

import (
	"context"
	"time"

	"github.com/garyellow/komida-linebot-go/internal/config"
	"github.com/garyellow/komida-linebot-go/internal/menu"
)

func (a *Application) startBackgroundJobs(ctx context.Context) {
	if a.snapshots != nil {
		a.snapshots.StartPolling(ctx)
	}
	a.wg.Go(func() {
		a.updateStoreMetrics(ctx)
	})
}

// updateStoreMetrics publishes store size gauges until ctx is done.
func (a *Application) updateStoreMetrics(ctx context.Context) {
	a.logger.Debug("Store metrics job started")
	defer a.logger.Debug("Store metrics job stopped")

	a.recordStoreMetrics(ctx)

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.recordStoreMetrics(ctx)
		}
	}
}

func (a *Application) recordStoreMetrics(ctx context.Context) {
	if a.metrics == nil {
		return
	}

	if count, err := a.store.CountItems(ctx); err == nil {
		a.metrics.SetCacheSize("items", count)
	}

	ld, ok := a.store.menuBackend.(latestDater)
	if !ok {
		return
	}
	latest, found, err := ld.LatestDate(ctx)
	if err != nil {
		return
	}
	a.metrics.SetCacheSize("days_ahead", daysAhead(menu.DateOf(time.Now()), latest, found))
}

// daysAhead counts the days from today up to latest, zero when nothing is stored
// or latest is in the past.
func daysAhead(today, latest menu.Date, found bool) int {
	if !found || latest.Compare(today) <= 0 {
		return 0
	}
	return int(latest.Time().Sub(today.Time()).Hours()) / 24
}
