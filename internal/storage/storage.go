// Package storage defines the persistence contract for encrypted credential
// records. Implementations must provide atomic whole-record upserts keyed on
// tenant id; concurrent readers may observe the old or new record but never a
// torn one.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for a tenant.
var ErrNotFound = errors.New("tenant record not found")

// EncryptedRecord is the single durable artifact per tenant. CipherBlob is
// produced only by the vault codec and is opaque to this layer.
type EncryptedRecord struct {
	TenantID   string
	CipherBlob string
	Active     bool
	UpdatedAt  time.Time
}

// CredentialStore persists one EncryptedRecord per tenant.
type CredentialStore interface {
	// Upsert creates or wholly replaces the record for a tenant and marks it
	// active. Re-uploading the same tenant overwrites, never duplicates;
	// concurrent upserts are last-write-wins with no merge.
	Upsert(ctx context.Context, tenantID, cipherBlob string) error

	// Get loads the record for a tenant. Returns ErrNotFound when absent.
	Get(ctx context.Context, tenantID string) (*EncryptedRecord, error)

	// Disable sets active=false without altering the stored blob. Records are
	// never physically removed.
	Disable(ctx context.Context, tenantID string) error

	// Close releases the underlying resources.
	Close() error
}
