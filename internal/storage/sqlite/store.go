// Package sqlite is a SQLite implementation of the credential store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/qubiq-ai/edu-gateway/internal/storage"
)

// Store is a SQLite-backed CredentialStore.
type Store struct {
	db *sql.DB
}

var _ storage.CredentialStore = (*Store)(nil)

// New opens (creating if necessary) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS school_keys (
			tenant_id TEXT PRIMARY KEY,
			cipher_blob TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_school_keys_active ON school_keys(active)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// Upsert creates or wholly replaces the record for a tenant and marks it
// active. The single INSERT ... ON CONFLICT statement gives last-write-wins
// semantics without additional locking.
func (s *Store) Upsert(ctx context.Context, tenantID, cipherBlob string) error {
	query := `INSERT INTO school_keys (tenant_id, cipher_blob, active, updated_at)
	          VALUES (?, ?, 1, ?)
	          ON CONFLICT(tenant_id) DO UPDATE SET
	            cipher_blob = excluded.cipher_blob,
	            active = 1,
	            updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, tenantID, cipherBlob, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert record for %s: %w", tenantID, err)
	}

	return nil
}

// Get loads the record for a tenant.
func (s *Store) Get(ctx context.Context, tenantID string) (*storage.EncryptedRecord, error) {
	query := `SELECT tenant_id, cipher_blob, active, updated_at
	          FROM school_keys WHERE tenant_id = ?`

	var rec storage.EncryptedRecord
	err := s.db.QueryRowContext(ctx, query, tenantID).
		Scan(&rec.TenantID, &rec.CipherBlob, &rec.Active, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record for %s: %w", tenantID, err)
	}

	return &rec, nil
}

// Disable sets active=false for a tenant, leaving the blob untouched.
func (s *Store) Disable(ctx context.Context, tenantID string) error {
	query := `UPDATE school_keys SET active = 0, updated_at = ? WHERE tenant_id = ?`

	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), tenantID)
	if err != nil {
		return fmt.Errorf("failed to disable %s: %w", tenantID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to disable %s: %w", tenantID, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
