package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alimasry/lumina/ot"
)

const sqliteSchema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS documents (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    content    TEXT NOT NULL,
    version    INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS operations (
    doc_id  TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    version INTEGER NOT NULL,
    ops     TEXT NOT NULL,
    PRIMARY KEY (doc_id, version)
);`

// SQLiteStore is a DocumentStore kept in a single SQLite file. Operations
// are stored as JSON, one row per version.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, id, title, content string) error {
	now := time.Now().UnixNano()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, content, version, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)`,
		id, title, content, now, now)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("document %q: %w", id, ErrExists)
	}
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, version, created_at, updated_at FROM documents WHERE id = ?`, id)
	info, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %q: %w", id, ErrNotFound)
	}
	return info, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*DocumentInfo, error) {
	var (
		info               DocumentInfo
		created, updated int64
	)
	if err := row.Scan(&info.ID, &info.Title, &info.Content, &info.Version, &created, &updated); err != nil {
		return nil, err
	}
	info.CreatedAt = time.Unix(0, created)
	info.UpdatedAt = time.Unix(0, updated)
	return &info, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, version, created_at, updated_at FROM documents ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DocumentInfo
	for rows.Next() {
		info, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *info)
	}
	return result, rows.Err()
}

// exec runs a statement that must touch exactly the document id.
func (s *SQLiteStore) exec(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Rename(ctx context.Context, id, title string) error {
	return s.exec(ctx, id,
		`UPDATE documents SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().UnixNano(), id)
}

func (s *SQLiteStore) UpdateContent(ctx context.Context, id, content string, version int) error {
	return s.exec(ctx, id,
		`UPDATE documents SET content = ?, version = ?, updated_at = ? WHERE id = ?`,
		content, version, time.Now().UnixNano(), id)
}

func (s *SQLiteStore) AppendOperation(ctx context.Context, id string, op ot.Operation, version int) error {
	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("encode operation: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET version = ?, updated_at = ? WHERE id = ?`,
		version, time.Now().UnixNano(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %q: %w", id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO operations (doc_id, version, ops) VALUES (?, ?, ?)`,
		id, version, string(data)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetOperations(ctx context.Context, id string, fromVersion int) ([]ot.Operation, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ops FROM operations WHERE doc_id = ? AND version > ? ORDER BY version`,
		id, fromVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ops := []ot.Operation{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var op ot.Operation
		if err := json.Unmarshal([]byte(data), &op); err != nil {
			return nil, fmt.Errorf("decode operation for %q: %w", id, err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// Delete removes the document and its operations. The operations are
// deleted explicitly since foreign key enforcement is per connection.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM operations WHERE doc_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %q: %w", id, ErrNotFound)
	}
	return tx.Commit()
}
