// Package pgstore serves menu lookups from PostgreSQL for deployments where
// an external writer keeps a shared database up to date.
package pgstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/garyellow/komida-linebot-go/internal/config"
	errs "github.com/garyellow/komida-linebot-go/internal/errors"
	"github.com/garyellow/komida-linebot-go/internal/menu"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectMenuQuery = `SELECT category, item, price_student::float8, price_staff::float8 FROM menu WHERE date = $1 AND campus = $2`

// Store is a menu repository backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and applies pending schema migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgstore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	if err := Migrate(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: %w", err)
	}
	return &Store{pool: pool}, nil
}

// FetchMenu looks up every (date, campus) pair on one acquired connection.
func (s *Store) FetchMenu(ctx context.Context, campuses []menu.Campus, dates []menu.Date) (*menu.Result, error) {
	start := time.Now()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, errs.NewStorageError("acquire", err)
	}
	defer conn.Release()

	result := menu.NewResult()
	for _, date := range dates {
		for _, campus := range campuses {
			entry, err := queryEntry(ctx, conn.Conn(), date, campus)
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

func queryEntry(ctx context.Context, conn *pgx.Conn, date menu.Date, campus menu.Campus) (*menu.Entry, error) {
	rows, err := conn.Query(ctx, selectMenuQuery, date.Time(), string(campus))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
func (s *Store) CountItems(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM menu`).Scan(&count); err != nil {
		return 0, errs.NewStorageError("count", err)
	}
	return count, nil
}

// SaveItems upserts the items of one (date, campus) using a batch.
func (s *Store) SaveItems(ctx context.Context, date menu.Date, campus menu.Campus, items []menu.Item) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`INSERT INTO menu (date, campus, category, item, price_student, price_staff)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (date, campus, category) DO UPDATE SET
	item = EXCLUDED.item, price_student = EXCLUDED.price_student, price_staff = EXCLUDED.price_staff`,
			date.Time(), string(campus), it.Category, it.Description, it.PriceStudent, it.PriceStaff)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("pgstore: save items: %w", err)
	}
	return nil
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() {
	s.pool.Close()
}
