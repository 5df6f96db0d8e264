package payments

import (
	"context"
	"net/http"
	"net/url"
)

// Adapter translates the canonical payment model to and from one external
// processor's API. New processors register with the Gateway without the
// Gateway or the webhook reconciler changing.
type Adapter interface {
	// Type identifies the processor.
	Type() ProviderType

	// Available reports whether credentials are configured for the active
	// environment. Sandbox and production credentials never mix.
	Available() bool

	// CreatePreference creates an external checkout intent and returns the
	// redirect URL the buyer completes payment at.
	CreatePreference(ctx context.Context, params CreatePaymentParams) (*Preference, error)

	// VerifyNotification authenticates one inbound notification. Returns
	// ErrWebhookAuth for unsigned or forged requests. Callers run it before
	// anything else acts on the notification.
	VerifyNotification(ctx context.Context, payload []byte, headers http.Header, query url.Values) error

	// DeliveryID extracts the processor's delivery identifier for a
	// notification, used for transport-level replay suppression. Empty when
	// the notification shape carries none.
	DeliveryID(payload []byte, headers http.Header, query url.Values) string

	// HandleWebhook translates one authenticated provider notification into
	// the canonical result. Informational notification shapes yield (nil, nil)
	// and are acknowledged upstream. It never mutates ledger state.
	HandleWebhook(ctx context.Context, payload []byte, headers http.Header, query url.Values) (*WebhookResult, error)

	// PaymentStatus queries the processor for a payment's current state, used
	// when the push notification is delayed or lost.
	PaymentStatus(ctx context.Context, paymentID string) (*StatusResult, error)
}
