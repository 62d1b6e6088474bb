package repository

import (
	"context"
	"database/sql"
	"errors"
)

// SQLBlobStore keeps blobs in the kv_blobs table of a MySQL or SQLite
// database. The two dialects differ only in their upsert statement.
type SQLBlobStore struct {
	db     *sql.DB
	upsert string
}

// NewMySQLBlobStore returns a blob store bound to a MySQL database.
func NewMySQLBlobStore(db *sql.DB) *SQLBlobStore {
	return &SQLBlobStore{
		db:     db,
		upsert: `INSERT INTO kv_blobs (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)`,
	}
}

// NewSQLiteBlobStore returns a blob store bound to a SQLite database.
func NewSQLiteBlobStore(db *sql.DB) *SQLBlobStore {
	return &SQLBlobStore{
		db:     db,
		upsert: `INSERT INTO kv_blobs (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
	}
}

// SaveBlob replaces the value stored under key.
func (s *SQLBlobStore) SaveBlob(ctx context.Context, key string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, s.upsert, key, blob)
	return err
}

// LoadBlob returns the value stored under key; ok is false when absent.
func (s *SQLBlobStore) LoadBlob(ctx context.Context, key string) ([]byte, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv_blobs WHERE k = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}
