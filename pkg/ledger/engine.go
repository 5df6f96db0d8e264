package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prepally/credits-engine/pkg/models"
	"github.com/prepally/credits-engine/pkg/storage"
)

// ErrInvalidAmount is returned for operations with a non-positive amount.
// Validation failures leave no trace in the ledger.
var ErrInvalidAmount = errors.New("credit amount must be a positive integer")

// maxVersionRetries bounds how many times an operation re-reads the wallet
// after losing an optimistic concurrency race.
const maxVersionRetries = 3

// DefaultFreeTrialCredits is granted once per user on signup.
const DefaultFreeTrialCredits = 1

// Store is the slice of the data layer the engine needs.
type Store interface {
	storage.WalletStore
	storage.LedgerStore
}

// TxOptions carries the optional fields of a credit operation.
type TxOptions struct {
	ReferenceType  string
	ReferenceID    string
	Metadata       map[string]string
	IdempotencyKey string
}

// Result is the outcome of a credit operation. Duplicate is set when the
// operation had already been applied under the same idempotency key; the
// returned values are then the stored originals.
type Result struct {
	NewBalance int64  `json:"new_balance"`
	EntryID    string `json:"ledger_entry_id"`
	Duplicate  bool   `json:"duplicate,omitempty"`
}

// Engine is the sole mutator of wallets and the ledger. Every operation is one
// atomic unit spanning the wallet update and the ledger insert.
type Engine struct {
	Store  Store
	Logger *slog.Logger
}

// NewEngine creates a new Engine.
func NewEngine(store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Store: store, Logger: logger}
}

// AddCredits appends a credit-granting entry and raises the balance. When the
// idempotency key has been used before, the stored result is returned and
// nothing is mutated.
func (e *Engine) AddCredits(ctx context.Context, userID string, entryType models.LedgerEntryType, amount int64, description string, opts TxOptions) (*Result, error) {
	if entryType.IsDebit() {
		return nil, fmt.Errorf("entry type %s is not credit-granting", entryType)
	}
	return e.apply(ctx, userID, entryType, amount, description, opts)
}

// SpendCredits appends a SPEND entry and lowers the balance. Fails with
// storage.ErrInsufficientCredits, with zero mutation, when the balance cannot
// cover the amount.
func (e *Engine) SpendCredits(ctx context.Context, userID string, amount int64, description string, opts TxOptions) (*Result, error) {
	return e.apply(ctx, userID, models.SPEND, amount, description, opts)
}

// RestoreCredits returns credits spent on a session that aborted early. The
// key is derived from the reference so each abort restores at most once.
func (e *Engine) RestoreCredits(ctx context.Context, userID string, amount int64, description, referenceType, referenceID string) (*Result, error) {
	return e.apply(ctx, userID, models.RESTORE, amount, description, TxOptions{
		ReferenceType:  referenceType,
		ReferenceID:    referenceID,
		IdempotencyKey: fmt.Sprintf("restore_%s", referenceID),
	})
}

// RefundCredits re-grants credits for a refunded payment, at most once per payment.
func (e *Engine) RefundCredits(ctx context.Context, userID string, amount int64, paymentID string) (*Result, error) {
	return e.apply(ctx, userID, models.REFUND, amount, "Refund for payment "+paymentID, TxOptions{
		ReferenceType:  "payment",
		ReferenceID:    paymentID,
		IdempotencyKey: fmt.Sprintf("refund_%s", paymentID),
	})
}

// GrantFreeTrialCredits grants the signup credits, at most once per user
// regardless of caller retries.
func (e *Engine) GrantFreeTrialCredits(ctx context.Context, userID string) (*Result, error) {
	return e.apply(ctx, userID, models.GRANT, DefaultFreeTrialCredits, "Free trial credits", TxOptions{
		IdempotencyKey: fmt.Sprintf("free_trial_%s", userID),
	})
}

// GrantPurchasedCredits grants the credits for an approved external payment.
// The key derives from the external payment id, so each confirmed payment can
// grant at most once however many times its webhook is delivered.
func (e *Engine) GrantPurchasedCredits(ctx context.Context, userID string, amount int64, externalPaymentID, packageName string) (*Result, error) {
	return e.apply(ctx, userID, models.PURCHASE, amount, "Purchase: "+packageName, TxOptions{
		ReferenceType:  "payment",
		ReferenceID:    externalPaymentID,
		IdempotencyKey: fmt.Sprintf("payment_%s", externalPaymentID),
	})
}

func (e *Engine) apply(ctx context.Context, userID string, entryType models.LedgerEntryType, amount int64, description string, opts TxOptions) (*Result, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	for attempt := 0; ; attempt++ {
		entry := &models.LedgerEntry{
			UserID:         userID,
			Type:           entryType,
			Amount:         amount,
			ReferenceType:  opts.ReferenceType,
			ReferenceID:    opts.ReferenceID,
			Description:    description,
			Metadata:       opts.Metadata,
			IdempotencyKey: opts.IdempotencyKey,
		}

		wallet, err := e.Store.ApplyEntry(ctx, entry)
		if err == nil {
			return &Result{NewBalance: wallet.Balance, EntryID: entry.ID}, nil
		}

		if errors.Is(err, storage.ErrDuplicateIdempotencyKey) {
			rec, recErr := e.Store.GetIdempotencyRecord(ctx, opts.IdempotencyKey)
			if recErr != nil {
				return nil, fmt.Errorf("duplicate operation but stored result unavailable: %w", recErr)
			}
			e.Logger.Info("duplicate credit operation ignored",
				"user_id", userID, "idempotency_key", opts.IdempotencyKey, "entry_id", rec.EntryID)
			return &Result{NewBalance: rec.BalanceAfter, EntryID: rec.EntryID, Duplicate: true}, nil
		}

		if errors.Is(err, storage.ErrVersionConflict) && attempt < maxVersionRetries {
			e.Logger.Debug("wallet version conflict, retrying",
				"user_id", userID, "attempt", attempt+1)
			continue
		}

		return nil, err
	}
}

// GetBalance returns the user's current balance, zero for users without a wallet.
func (e *Engine) GetBalance(ctx context.Context, userID string) (int64, error) {
	wallet, err := e.Store.GetWallet(ctx, userID)
	if errors.Is(err, storage.ErrWalletNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// HasCredits reports whether the user's balance covers the given amount.
func (e *Engine) HasCredits(ctx context.Context, userID string, amount int64) (bool, error) {
	balance, err := e.GetBalance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// GetTransactionHistory returns a page of the user's ledger, newest first.
func (e *Engine) GetTransactionHistory(ctx context.Context, userID string, opts storage.ListOptions) ([]models.LedgerEntry, error) {
	return e.Store.ListLedgerEntries(ctx, userID, opts)
}
