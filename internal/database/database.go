// Package database implements the reservation store on SQLite.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrVersionConflict reports a lost optimistic-concurrency race on a
// versioned update.
var ErrVersionConflict = errors.New("version conflict")

// DB wraps sql.DB for the reservation platform.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Places and equipment with their usage policies
		`CREATE TABLE IF NOT EXISTS resources (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT UNIQUE NOT NULL,
			description TEXT,
			active BOOLEAN NOT NULL DEFAULT 1,
			max_minutes_per_request INTEGER NOT NULL DEFAULT 0,
			cumulative_budget_minutes INTEGER NOT NULL DEFAULT 0,
			max_concurrent INTEGER NOT NULL DEFAULT 1,
			auto_accept BOOLEAN NOT NULL DEFAULT 0,
			restricted_to TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Reservation requests; start_abs/end_abs are minutes on the
		// absolute timeline so overlap is a plain interval comparison
		`CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			requester_id TEXT NOT NULL,
			requester_type TEXT,
			requester_name TEXT,
			requester_phone TEXT,
			title TEXT NOT NULL,
			description TEXT,
			date DATETIME NOT NULL,
			start_minute INTEGER NOT NULL,
			end_minute INTEGER NOT NULL,
			start_abs INTEGER NOT NULL,
			end_abs INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			staff_comment TEXT,
			reminder_sent BOOLEAN NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Bundle membership: one row per resource a reservation spans
		`CREATE TABLE IF NOT EXISTS reservation_resources (
			reservation_id TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			PRIMARY KEY (reservation_id, resource_id),
			FOREIGN KEY (reservation_id) REFERENCES reservations(id),
			FOREIGN KEY (resource_id) REFERENCES resources(id)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_reservations_abs ON reservations(start_abs, end_abs)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_requester ON reservations(requester_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservation_resources_resource ON reservation_resources(resource_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

type txKey struct{}

// WithTx runs fn inside an immediate transaction, serializing concurrent
// admission and acceptance decisions. Nested calls reuse the outer
// transaction.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// querier returns the transaction carried by ctx, or the bare connection.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) q(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db.DB
}
