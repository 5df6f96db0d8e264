package storage

import "errors"

// ErrInsufficientCredits is returned when a wallet's balance cannot cover a debit.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrDuplicateIdempotencyKey is returned when a ledger write carries an
// idempotency key that already exists. Callers treat this as success and read
// the stored result back via GetIdempotencyRecord.
var ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")

// ErrVersionConflict is returned when a wallet mutation lost an optimistic
// concurrency race and should be retried against fresh wallet state.
var ErrVersionConflict = errors.New("wallet version conflict")

// ErrWalletNotFound is returned when no wallet exists for a user.
var ErrWalletNotFound = errors.New("wallet not found")

// ErrPaymentNotFound is returned when no payment record matches the lookup.
var ErrPaymentNotFound = errors.New("payment record not found")

// ErrPaymentAlreadyFinal is returned when a status transition is requested for
// a payment record that already reached a terminal state.
var ErrPaymentAlreadyFinal = errors.New("payment record already in a terminal state")

// ErrDuplicateWebhook is returned when a provider delivery id has already been
// recorded within the replay-protection window.
var ErrDuplicateWebhook = errors.New("webhook delivery already processed")
