package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guttosm/shell-cache/internal/domain/model"
	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_stores (
	name       TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cache_entries (
	store      TEXT NOT NULL,
	cache_key  TEXT NOT NULL,
	method     TEXT NOT NULL,
	url        TEXT NOT NULL,
	status     INTEGER NOT NULL,
	type       TEXT NOT NULL,
	header     TEXT NOT NULL,
	body       BLOB,
	final_url  TEXT NOT NULL,
	stored_at  INTEGER NOT NULL,
	PRIMARY KEY (store, cache_key)
);`

// SQLiteStorage keeps every generation in one SQLite database file.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLite opens (creating) a SQLite database at path.
func OpenSQLite(path string) (*SQLiteStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Limit SQLite to a single open connection to avoid "database is locked" errors
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Open returns the named store, creating it when absent.
func (s *SQLiteStorage) Open(ctx context.Context, name string) (Store, error) {
	if err := ValidateStoreName(name); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_stores (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, toMillis(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", name, err)
	}
	return &sqliteStore{db: s.db, name: name}, nil
}

// Has reports whether the named store exists.
func (s *SQLiteStorage) Has(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM cache_stores WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Keys lists store names in lexical order.
func (s *SQLiteStorage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM cache_stores ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes a store and its entries in one transaction.
func (s *SQLiteStorage) Delete(ctx context.Context, name string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM cache_stores WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete store %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE store = ?`, name); err != nil {
		return false, fmt.Errorf("delete entries of %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Ping verifies the database handle.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStorage) Close(context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Backend returns "sqlite".
func (s *SQLiteStorage) Backend() string { return "sqlite" }

type sqliteStore struct {
	db   *sql.DB
	name string
}

func (s *sqliteStore) Name() string { return s.name }

func (s *sqliteStore) Match(ctx context.Context, id model.RequestIdentity) (*model.Snapshot, error) {
	var (
		snap     model.Snapshot
		typ      string
		header   string
		storedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT status, type, header, body, final_url, stored_at FROM cache_entries WHERE store = ? AND cache_key = ?`,
		s.name, id.Key(),
	).Scan(&snap.Status, &typ, &header, &snap.Body, &snap.URL, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", id, err)
	}

	snap.Type = model.ResponseType(typ)
	snap.StoredAt = fromMillis(storedAt)
	if snap.Header, err = decodeHeader(header); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *sqliteStore) Put(ctx context.Context, id model.RequestIdentity, snap *model.Snapshot) error {
	header, err := encodeHeader(snap.Header)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (store, cache_key, method, url, status, type, header, body, final_url, stored_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM cache_stores WHERE name = ?)
		ON CONFLICT(store, cache_key) DO UPDATE SET
			status = excluded.status,
			type = excluded.type,
			header = excluded.header,
			body = excluded.body,
			final_url = excluded.final_url,
			stored_at = excluded.stored_at`,
		s.name, id.Key(), id.Method, id.URL, snap.Status, string(snap.Type), header, snap.Body, snap.URL, toMillis(snap.StoredAt),
		s.name,
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStoreNotFound
	}
	return nil
}

func (s *sqliteStore) Keys(ctx context.Context) ([]model.RequestIdentity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT method, url FROM cache_entries WHERE store = ? ORDER BY cache_key`, s.name)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var ids []model.RequestIdentity
	for rows.Next() {
		var id model.RequestIdentity
		if err := rows.Scan(&id.Method, &id.URL); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *sqliteStore) Delete(ctx context.Context, id model.RequestIdentity) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE store = ? AND cache_key = ?`, s.name, id.Key())
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func encodeHeader(h http.Header) (string, error) {
	if len(h) == 0 {
		return "{}", nil
	}
	encoded, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}
	return string(encoded), nil
}

func decodeHeader(value string) (http.Header, error) {
	h := http.Header{}
	if err := json.Unmarshal([]byte(value), &h); err != nil {
		return nil, fmt.Errorf("unmarshal header: %w", err)
	}
	if len(h) == 0 {
		return nil, nil
	}
	return h, nil
}
