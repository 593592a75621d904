package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sei-protocol/ckanpatch/entity"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteTable stores documents as JSON rows in a SQLite database.
type SQLiteTable struct {
	db *sql.DB
}

// OpenSQLite opens, creating when needed, the database at path.
func OpenSQLite(path string) (*SQLiteTable, error) {
	if path == "" {
		path = "ckanpatch.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		kind TEXT NOT NULL,
		id   TEXT NOT NULL,
		body BLOB NOT NULL,
		PRIMARY KEY (kind, id)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &SQLiteTable{db: db}, nil
}

func (s *SQLiteTable) Close() error {
	return s.db.Close()
}

func (s *SQLiteTable) Get(ctx context.Context, kind entity.Kind, id string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE kind = ? AND id = ?`, string(kind), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s %s: %w", kind, id, err)
	}
	return body, nil
}

func (s *SQLiteTable) Put(ctx context.Context, kind entity.Kind, id string, body []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (kind, id, body) VALUES (?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET body = excluded.body`, string(kind), id, body)
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *SQLiteTable) Scan(ctx context.Context, kind entity.Kind, fn func(id string, body []byte) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, body FROM documents WHERE kind = ? ORDER BY id`, string(kind))
	if err != nil {
		return fmt.Errorf("select %s: %w", kind, err)
	}
	type row struct {
		id   string
		body []byte
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.body); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan: %w", err)
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	// Callbacks may read the table again, so rows are released first.
	for _, r := range all {
		if err := fn(r.id, r.body); err != nil {
			if errors.Is(err, ErrStopScan) {
				return nil
			}
			return err
		}
	}
	return nil
}
