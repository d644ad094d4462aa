package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists artifact signatures so initialization survives restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (and migrates) the signature database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS artifact_signatures (
		session_key TEXT PRIMARY KEY,
		signature TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var sig string
	err := s.db.QueryRowContext(ctx, `SELECT signature FROM artifact_signatures WHERE session_key = ?`, key).Scan(&sig)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read signature: %w", err)
	}
	return sig, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key, signature string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifact_signatures (session_key, signature, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_key) DO UPDATE SET signature = excluded.signature, updated_at = CURRENT_TIMESTAMP`,
		key, signature)
	if err != nil {
		return fmt.Errorf("write signature: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
