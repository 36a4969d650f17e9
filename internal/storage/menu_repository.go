package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/garyellow/komida-linebot-go/internal/config"
	errs "github.com/garyellow/komida-linebot-go/internal/errors"
	"github.com/garyellow/komida-linebot-go/internal/menu"
)

// ReaderSource supplies the pool to read from. Both *DB and *HotSwapDB
// satisfy it; the pool is fetched again on every call so a lookup always
// sees the most recently swapped-in store.
type ReaderSource interface {
	Reader() *sql.DB
}

// MenuRepository answers menu lookups from SQLite.
type MenuRepository struct {
	source ReaderSource
}

// NewMenuRepository creates a repository over source.
func NewMenuRepository(source ReaderSource) *MenuRepository {
	return &MenuRepository{source: source}
}

const selectMenuQuery = `SELECT category, item, price_student, price_staff FROM menu WHERE date = ? AND campus = ?`

// FetchMenu looks up every (date, campus) pair, date-major. Pairs without
// rows are absent from the result. A dedicated connection is held for the
// duration of the call.
func (r *MenuRepository) FetchMenu(ctx context.Context, campuses []menu.Campus, dates []menu.Date) (*menu.Result, error) {
	start := time.Now()

	conn, err := r.source.Reader().Conn(ctx)
	if err != nil {
		return nil, errs.NewStorageError("connect", err)
	}
	defer func() { _ = conn.Close() }()

	stmt, err := conn.PrepareContext(ctx, selectMenuQuery)
	if err != nil {
		return nil, errs.NewStorageError("prepare", err)
	}
	defer func() { _ = stmt.Close() }()

	result := menu.NewResult()
	for _, date := range dates {
		for _, campus := range campuses {
			entry, err := queryEntry(ctx, stmt, date, campus)
			if err != nil {
				slog.ErrorContext(ctx, "Menu query failed",
					"date", date.String(), "campus", string(campus), "error", err)
				return nil, errs.NewStorageError("query", err)
			}
			result.Put(menu.Key{Date: date, Campus: campus}, entry)
		}
	}

	if elapsed := time.Since(start); elapsed > config.SlowQueryThreshold {
		slog.WarnContext(ctx, "Slow menu lookup",
			"duration_ms", elapsed.Milliseconds(),
			"pairs", len(dates)*len(campuses))
	}

	return result, nil
}

func queryEntry(ctx context.Context, stmt *sql.Stmt, date menu.Date, campus menu.Campus) (*menu.Entry, error) {
	rows, err := stmt.QueryContext(ctx, date.String(), string(campus))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entry := menu.NewEntry()
	for rows.Next() {
		var it menu.Item
		if err := rows.Scan(&it.Category, &it.Description, &it.PriceStudent, &it.PriceStaff); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		entry.Set(it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entry, nil
}

// CountItems returns the number of stored menu rows.
func (r *MenuRepository) CountItems(ctx context.Context) (int, error) {
	var count int
	if err := r.source.Reader().QueryRowContext(ctx, `SELECT COUNT(*) FROM menu`).Scan(&count); err != nil {
		return 0, errs.NewStorageError("count", err)
	}
	return count, nil
}

// LatestDate returns the most recent date with menu rows, or false when the
// store is empty.
func (r *MenuRepository) LatestDate(ctx context.Context) (menu.Date, bool, error) {
	var raw sql.NullString
	if err := r.source.Reader().QueryRowContext(ctx, `SELECT MAX(date) FROM menu`).Scan(&raw); err != nil {
		return menu.Date{}, false, errs.NewStorageError("latest date", err)
	}
	if !raw.Valid {
		return menu.Date{}, false, nil
	}
	d, err := menu.ParseDate(raw.String)
	if err != nil {
		return menu.Date{}, false, errs.NewStorageError("latest date", err)
	}
	return d, true, nil
}
