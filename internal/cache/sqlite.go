package cache

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the cache database at dbPath.
// Use ":memory:" for an in-memory cache.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create cache directory").
				WithContext("path", dbPath).Build()
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryCache, "open sqlite database").
			WithContext("path", dbPath).Build()
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.WrapError(err, errors.CategoryCache, "initialize schema").Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		slug TEXT NOT NULL PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		signature TEXT NOT NULL,
		payload BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM documents WHERE slug = ? AND fingerprint = ? AND signature = ?",
		key.Slug, key.Fingerprint, key.Signature,
	).Scan(&payload)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WrapError(err, errors.CategoryCache, "query document").
			WithContext("slug", key.Slug).Build()
	}
	return payload, true, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, key Key, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (slug, fingerprint, signature, payload, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET fingerprint = excluded.fingerprint, signature = excluded.signature,
			payload = excluded.payload, updated_at = excluded.updated_at`,
		key.Slug, key.Fingerprint, key.Signature, data, time.Now().Unix(),
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryCache, "store document").
			WithContext("slug", key.Slug).Build()
	}
	return nil
}

// Prune implements Store.
func (s *SQLiteStore) Prune(ctx context.Context, keep []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "DELETE FROM documents"
	args := make([]any, 0, len(keep))
	if len(keep) > 0 {
		query += " WHERE slug NOT IN (?" + strings.Repeat(", ?", len(keep)-1) + ")"
		for _, slug := range keep {
			args = append(args, slug)
		}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryCache, "prune documents").Build()
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
