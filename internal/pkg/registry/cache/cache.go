// Package cache persists accessory identities in an embedded sqlite
// database so the tracked set survives restarts.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/anicoll/switchbridge/internal/pkg/model"
)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache at path. Use ":memory:" for tests.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening accessory cache: %w", err)
	}
	// sqlite serializes writers; a single connection avoids busy errors.
	db.SetMaxOpenConns(1)
	if err := initialise(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initialise(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS accessories (
    uuid TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    device_id TEXT NOT NULL,
    switch_index INTEGER NOT NULL,
    serial_key TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_accessories_device ON accessories (device_id);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("initialising accessory cache: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RestoreCached(ctx context.Context) ([]model.Entry, error) {
	const query = `
	SELECT uuid, display_name, device_id, switch_index, serial_key
	FROM accessories
	ORDER BY switch_index;
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		var e model.Entry
		if err := rows.Scan(&e.UUID, &e.DisplayName, &e.Context.DeviceID, &e.Context.Index, &e.Context.SerialKey); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Register(ctx context.Context, entries []model.Entry) error {
	const insertSQL = `
	INSERT INTO accessories (uuid, display_name, device_id, switch_index, serial_key, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(uuid) DO UPDATE SET display_name = excluded.display_name, updated_at = excluded.updated_at;
	`
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, insertSQL,
				e.UUID, e.DisplayName, e.Context.DeviceID, e.Context.Index, e.Context.SerialKey, time.Now().UTC()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Unregister(ctx context.Context, entries []model.Entry) error {
	const deleteSQL = `DELETE FROM accessories WHERE uuid = ?;`
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, deleteSQL, e.UUID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Update(ctx context.Context, entries []model.Entry) error {
	const updateSQL = `UPDATE accessories SET display_name = ?, updated_at = ? WHERE uuid = ?;`
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, updateSQL, e.DisplayName, time.Now().UTC(), e.UUID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
