// Package sqlite persists rows as JSON documents in an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"portflow/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

const defaultPath = "portflow.db"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		seq     INTEGER PRIMARY KEY AUTOINCREMENT,
		tbl     TEXT NOT NULL,
		id      TEXT NOT NULL,
		payload TEXT NOT NULL,
		UNIQUE (tbl, id)
	)`,
	`CREATE TABLE IF NOT EXISTS sequences (
		tbl   TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`,
}

// Store keeps one row per (table, id) with the row body as JSON. Queries are
// evaluated in process after loading a table's documents in insertion order.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the SQLite file at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadTable(ctx context.Context, q queryer, table domain.Table) ([]domain.Row, error) {
	rows, err := q.QueryContext(ctx, `SELECT payload FROM records WHERE tbl = ? ORDER BY seq`, string(table))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()
	out := []domain.Row{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row, err := decode(payload)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

func loadRow(ctx context.Context, q queryer, table domain.Table, id string) (domain.Row, error) {
	var payload string
	err := q.QueryRowContext(ctx, `SELECT payload FROM records WHERE tbl = ? AND id = ?`, string(table), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound{Table: table, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("select %s %s: %w", table, id, err)
	}
	return decode(payload)
}

func decode(payload string) (domain.Row, error) {
	var row domain.Row
	if err := json.Unmarshal([]byte(payload), &row); err != nil {
		return nil, err
	}
	return row, nil
}

// List loads the table and applies q in process.
func (s *Store) List(ctx context.Context, table domain.Table, q domain.Query) ([]domain.Row, error) {
	rows, err := loadTable(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	return q.Apply(rows), nil
}

// Get returns a single row or ErrNotFound.
func (s *Store) Get(ctx context.Context, table domain.Table, id string) (domain.Row, error) {
	return loadRow(ctx, s.db, table, id)
}

// Insert stores row, drawing the next id from the table's sequence when absent.
func (s *Store) Insert(ctx context.Context, table domain.Table, row domain.Row) (domain.Row, error) {
	var stored domain.Row
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stored = row.Clone()
		if stored == nil {
			stored = domain.Row{}
		}
		id := stored.ID()
		if id == "" {
			var next int64
			err := tx.QueryRowContext(ctx,
				`INSERT INTO sequences(tbl, value) VALUES(?, 1)
				 ON CONFLICT(tbl) DO UPDATE SET value = value + 1
				 RETURNING value`, string(table)).Scan(&next)
			if err != nil {
				return fmt.Errorf("next id for %s: %w", table, err)
			}
			stored[domain.ColumnID] = next
			id = stored.ID()
		} else if n, ok := domain.NumericID(id); ok {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sequences(tbl, value) VALUES(?, ?)
				 ON CONFLICT(tbl) DO UPDATE SET value = MAX(value, excluded.value)`, string(table), n); err != nil {
				return fmt.Errorf("advance sequence for %s: %w", table, err)
			}
		}
		payload, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("encode %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO records(tbl, id, payload) VALUES(?, ?, ?)`, string(table), id, string(payload)); err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				return fmt.Errorf("%s %s already exists", table, id)
			}
			return fmt.Errorf("insert %s: %w", table, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Update merges patch into the stored document.
func (s *Store) Update(ctx context.Context, table domain.Table, id string, patch domain.Row) (domain.Row, error) {
	var updated domain.Row
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := loadRow(ctx, tx, table, id)
		if err != nil {
			return err
		}
		updated = current.Merge(patch)
		return writeRow(ctx, tx, table, id, updated)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the document and returns its last state.
func (s *Store) Delete(ctx context.Context, table domain.Table, id string) (domain.Row, error) {
	var removed domain.Row
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := loadRow(ctx, tx, table, id)
		if err != nil {
			return err
		}
		removed = current
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE tbl = ? AND id = ?`, string(table), id); err != nil {
			return fmt.Errorf("delete %s %s: %w", table, id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// UpdateWhere merges patch into every matching document.
func (s *Store) UpdateWhere(ctx context.Context, table domain.Table, filters []domain.Filter, patch domain.Row) (int64, error) {
	var n int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := loadTable(ctx, tx, table)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if !domain.MatchFilters(row, filters) {
				continue
			}
			if err := writeRow(ctx, tx, table, row.ID(), row.Merge(patch)); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// DeleteWhere removes every matching document.
func (s *Store) DeleteWhere(ctx context.Context, table domain.Table, filters []domain.Filter) (int64, error) {
	var n int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := loadTable(ctx, tx, table)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if !domain.MatchFilters(row, filters) {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE tbl = ? AND id = ?`, string(table), row.ID()); err != nil {
				return fmt.Errorf("delete %s %s: %w", table, row.ID(), err)
			}
			n++
		}
		return nil
	})
	return n, err
}

func writeRow(ctx context.Context, tx *sql.Tx, table domain.Table, id string, row domain.Row) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE records SET payload = ? WHERE tbl = ? AND id = ?`, string(payload), string(table), id); err != nil {
		return fmt.Errorf("update %s %s: %w", table, id, err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
