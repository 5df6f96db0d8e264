package storage

import (
	"context"

	"github.com/prepally/credits-engine/pkg/models"
)

// ListOptions controls ledger history pagination and filtering.
type ListOptions struct {
	Limit  int32
	Offset int32
	// Type filters entries to a single entry type when non-empty.
	Type models.LedgerEntryType
}

// LedgerStore defines the privileged interface for appending to the ledger.
// ApplyEntry is the only operation in the system that mutates a wallet.
type LedgerStore interface {
	// ApplyEntry atomically applies one ledger entry: the wallet update, the
	// entry insert and (when the entry carries an idempotency key) the
	// uniqueness marker all commit or roll back together. The entry's type
	// decides the direction; Amount must be positive.
	//
	// Returns ErrDuplicateIdempotencyKey if the key was already used,
	// ErrInsufficientCredits if a debit exceeds the balance, and
	// ErrVersionConflict when the wallet changed underneath the caller.
	ApplyEntry(ctx context.Context, entry *models.LedgerEntry) (*models.Wallet, error)

	// GetIdempotencyRecord returns the stored result of a previous keyed write.
	GetIdempotencyRecord(ctx context.Context, key string) (*models.IdempotencyRecord, error)

	// ListLedgerEntries retrieves a user's entries, most recent first.
	ListLedgerEntries(ctx context.Context, userID string, opts ListOptions) ([]models.LedgerEntry, error)
}
