package storage

import (
	"context"

	"github.com/prepally/credits-engine/pkg/models"
)

// WalletStore defines the interface for reading wallets. Wallet mutation only
// happens through LedgerStore.ApplyEntry so the wallet and the ledger can
// never drift apart.
type WalletStore interface {
	// GetWallet retrieves a user's wallet by their user ID.
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)

	// GetOrCreateWallet retrieves a user's wallet, lazily creating an empty one
	// on first access. Creation is race-safe: a storage-level uniqueness
	// constraint decides the winner, never an application-level existence check.
	GetOrCreateWallet(ctx context.Context, userID string) (*models.Wallet, error)
}
