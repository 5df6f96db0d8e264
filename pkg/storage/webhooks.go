package storage

import (
	"context"
	"time"
)

// WebhookStore defines the transport-level replay guard: a bounded set of
// provider delivery ids. It is an optimization layered on top of the ledger's
// idempotency keys, never a substitute for them. Entries expire on a short
// TTL; the backing table is shared, so the guard holds across instances.
type WebhookStore interface {
	// MarkWebhookProcessed records a provider delivery id with the given TTL.
	// The check and the insert are a single atomic conditional write; a second
	// delivery of the same id returns ErrDuplicateWebhook.
	MarkWebhookProcessed(ctx context.Context, provider, deliveryID string, ttl time.Duration) error
}
