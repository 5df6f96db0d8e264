package models

import (
	"time"
)

// LedgerEntryType defines the possible kinds of credit movement.
type LedgerEntryType string

const (
	PURCHASE LedgerEntryType = "PURCHASE"
	GRANT    LedgerEntryType = "GRANT"
	SPEND    LedgerEntryType = "SPEND"
	REFUND   LedgerEntryType = "REFUND"
	RESTORE  LedgerEntryType = "RESTORE"
	ADMIN    LedgerEntryType = "ADMIN"
	PROMO    LedgerEntryType = "PROMO"
	REFERRAL LedgerEntryType = "REFERRAL"
	EXPIRE   LedgerEntryType = "EXPIRE"
)

// IsDebit reports whether entries of this type reduce the balance.
// Amounts on ledger entries are always positive; the type carries the sign.
func (t LedgerEntryType) IsDebit() bool {
	return t == SPEND || t == EXPIRE
}

// IsGrant reports whether entries of this type count towards TotalGranted.
func (t LedgerEntryType) IsGrant() bool {
	return t == GRANT || t == PROMO || t == REFERRAL || t == ADMIN
}

// PaymentStatus defines the lifecycle states of an external payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentApproved  PaymentStatus = "APPROVED"
	PaymentRejected  PaymentStatus = "REJECTED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
	PaymentInProcess PaymentStatus = "IN_PROCESS"
)

// IsTerminal reports whether a payment in this status is final. Repeat
// notifications for a record already in a terminal state are no-ops.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentApproved || s == PaymentRejected || s == PaymentCancelled || s == PaymentRefunded
}

// Wallet represents the internal domain model for a user's credit balance.
// It is a denormalized view of the ledger and must always be re-derivable from it.
type Wallet struct {
	UserID         string     `json:"user_id" dynamodbav:"user_id"`
	Balance        int64      `json:"balance" dynamodbav:"balance"`
	TotalEarned    int64      `json:"total_earned" dynamodbav:"total_earned"`
	TotalSpent     int64      `json:"total_spent" dynamodbav:"total_spent"`
	TotalPurchased int64      `json:"total_purchased" dynamodbav:"total_purchased"`
	TotalGranted   int64      `json:"total_granted" dynamodbav:"total_granted"`
	LastCreditAt   *time.Time `json:"last_credit_at,omitempty" dynamodbav:"last_credit_at,omitempty"`
	LastDebitAt    *time.Time `json:"last_debit_at,omitempty" dynamodbav:"last_debit_at,omitempty"`
	Version        int64      `json:"version" dynamodbav:"version"`
	CreatedAt      time.Time  `json:"created_at" dynamodbav:"created_at"`
}

// LedgerEntry represents a single immutable entry in the credits ledger.
type LedgerEntry struct {
	ID             string            `json:"id" dynamodbav:"id"`
	UserID         string            `json:"user_id" dynamodbav:"user_id"`
	Type           LedgerEntryType   `json:"type" dynamodbav:"entry_type"`
	Amount         int64             `json:"amount" dynamodbav:"amount"`
	BalanceAfter   int64             `json:"balance_after" dynamodbav:"balance_after"`
	ReferenceType  string            `json:"reference_type,omitempty" dynamodbav:"reference_type,omitempty"`
	ReferenceID    string            `json:"reference_id,omitempty" dynamodbav:"reference_id,omitempty"`
	Description    string            `json:"description" dynamodbav:"description"`
	Metadata       map[string]string `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
	IdempotencyKey string            `json:"idempotency_key,omitempty" dynamodbav:"idempotency_key,omitempty"`
	CreatedAt      time.Time         `json:"created_at" dynamodbav:"created_at"`
}

// IdempotencyRecord is the marker item persisted alongside a keyed ledger entry.
// Its existence is what makes a key unique; it stores enough to answer a replay
// without touching the wallet.
type IdempotencyRecord struct {
	Key          string    `dynamodbav:"id"`
	UserID       string    `dynamodbav:"user_id"`
	EntryID      string    `dynamodbav:"entry_id"`
	BalanceAfter int64     `dynamodbav:"balance_after"`
	CreatedAt    time.Time `dynamodbav:"created_at"`
}

// PaymentRecord tracks one external purchase intent from creation to its
// terminal state. At most one PURCHASE ledger entry ever results from a record.
type PaymentRecord struct {
	ID                string        `json:"id" dynamodbav:"id"`
	UserID            string        `json:"user_id" dynamodbav:"user_id"`
	PackageID         string        `json:"package_id" dynamodbav:"package_id"`
	PackageName       string        `json:"package_name" dynamodbav:"package_name"`
	CreditsAmount     int64         `json:"credits_amount" dynamodbav:"credits_amount"`
	AmountLocal       int64         `json:"amount_local" dynamodbav:"amount_local"`
	Currency          string        `json:"currency" dynamodbav:"currency"`
	Provider          string        `json:"provider" dynamodbav:"provider"`
	PreferenceID      string        `json:"preference_id" dynamodbav:"preference_id"`
	ExternalPaymentID string        `json:"external_payment_id,omitempty" dynamodbav:"external_payment_id,omitempty"`
	Status            PaymentStatus `json:"status" dynamodbav:"payment_status"`
	StatusDetail      string        `json:"status_detail,omitempty" dynamodbav:"status_detail,omitempty"`
	PaidAt            *time.Time    `json:"paid_at,omitempty" dynamodbav:"paid_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at" dynamodbav:"created_at"`
}

// ProcessedWebhook is the transport-level replay guard for one provider delivery.
// Entries expire via the table TTL; ledger idempotency keys are the mechanism
// that never expires.
type ProcessedWebhook struct {
	ID        string `dynamodbav:"id"`
	Provider  string `dynamodbav:"provider"`
	TTL       int64  `dynamodbav:"ttl"`
	CreatedAt int64  `dynamodbav:"created_at"`
}
