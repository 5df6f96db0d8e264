package payments

import (
	"errors"
	"fmt"
)

// ErrNoProviderAvailable is returned when no registered adapter has usable
// credentials. Retryable and safe to surface to the caller.
var ErrNoProviderAvailable = errors.New("no payment provider available")

// ErrWebhookAuth is returned when a webhook signature fails verification.
// Never silently ignored: a spoofed notification could otherwise hide a forged
// credit grant.
var ErrWebhookAuth = errors.New("webhook signature verification failed")

// DeclineCode is the stable decline vocabulary. Adapters map provider-specific
// reject codes onto it so the rest of the system never sees provider jargon.
type DeclineCode string

const (
	DeclineInsufficientFunds DeclineCode = "insufficient_funds"
	DeclineBadCard           DeclineCode = "card_invalid"
	DeclineBadCVV            DeclineCode = "cvv_invalid"
	DeclineExpiredCard       DeclineCode = "card_expired"
	DeclineHighRisk          DeclineCode = "high_risk"
	DeclineCallIssuer        DeclineCode = "call_issuer"
	DeclineOther             DeclineCode = "declined"
)

// DeclinedError reports a provider decline with its mapped code.
type DeclinedError struct {
	Provider ProviderType
	Code     DeclineCode
	Raw      string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined by %s: %s (%s)", e.Provider, e.Code, e.Raw)
}
