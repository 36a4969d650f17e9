// Package storage provides the SQLite menu store: connection management,
// schema migrations, hot swapping of snapshot files and the menu repository.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/garyellow/komida-linebot-go/internal/config"
	"github.com/garyellow/komida-linebot-go/internal/menu"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

const memoryPath = ":memory:"

// DB wraps the SQLite connection pools. Writes go through a single-connection
// writer pool; lookups use the reader pool.
type DB struct {
	writer *sql.DB
	reader *sql.DB
	path   string
}

// New opens the database at dbPath, applies pragmas and runs migrations.
// ":memory:" opens a private in-memory database on a single connection.
func New(ctx context.Context, dbPath string) (*DB, error) {
	if dbPath != memoryPath {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	writer, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	writer.SetMaxOpenConns(1)
	writer.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)

	reader := writer
	if dbPath != memoryPath {
		reader, err = sql.Open("sqlite", dsn(dbPath))
		if err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("open reader pool: %w", err)
		}
		reader.SetMaxOpenConns(config.DatabaseReaderConns)
		reader.SetMaxIdleConns(config.DatabaseReaderConns)
		reader.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)
	}

	db := &DB{writer: writer, reader: reader, path: dbPath}

	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(writer); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

// NewTestDB creates an in-memory database for tests.
func NewTestDB() (*DB, error) {
	return New(context.Background(), memoryPath)
}

// dsn builds a modernc DSN whose pragmas apply to every pooled connection.
func dsn(path string) string {
	if path == memoryPath {
		return path
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", config.DatabaseBusyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + path + "?" + q.Encode()
}

// Reader returns the pool used for lookups.
func (db *DB) Reader() *sql.DB {
	return db.reader
}

// Writer returns the single-connection write pool.
func (db *DB) Writer() *sql.DB {
	return db.writer
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Ping checks both pools.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.writer.PingContext(ctx); err != nil {
		return err
	}
	if db.reader != db.writer {
		return db.reader.PingContext(ctx)
	}
	return nil
}

// Close closes both pools.
func (db *DB) Close() error {
	var err error
	if db.reader != nil && db.reader != db.writer {
		err = db.reader.Close()
	}
	if db.writer != nil {
		if werr := db.writer.Close(); werr != nil {
			err = werr
		}
	}
	return err
}

const upsertItemQuery = `INSERT INTO menu (date, campus, category, item, price_student, price_staff)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(date, campus, category) DO UPDATE SET
	item = excluded.item,
	price_student = excluded.price_student,
	price_staff = excluded.price_staff`

// SaveItems upserts the items of one (date, campus) in a single transaction.
// The bot itself never writes; this serves fixtures and the import command.
func (db *DB) SaveItems(ctx context.Context, date menu.Date, campus menu.Campus, items []menu.Item) error {
	tx, err := db.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertItemQuery)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, date.String(), string(campus), it.Category, it.Description, it.PriceStudent, it.PriceStaff); err != nil {
			return fmt.Errorf("upsert %s/%s/%s: %w", date, campus, it.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// snapshotTimeout bounds VACUUM INTO for large stores.
const snapshotTimeout = 2 * time.Minute

// CreateSnapshot writes a consistent copy of the database to destPath.
func (db *DB) CreateSnapshot(ctx context.Context, destPath string) error {
	if db.path == memoryPath {
		return fmt.Errorf("snapshot of in-memory database is not supported")
	}
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	if _, err := db.writer.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("vacuum into %s: %w", destPath, err)
	}
	return nil
}
