package payments

import (
	"encoding/json"
	"fmt"
)

// ProviderType identifies one external payment processor.
type ProviderType string

const (
	// ProviderMercadoPago is the regional card processor for LATAM users.
	ProviderMercadoPago ProviderType = "mercadopago"
	// ProviderPayPal is the global wallet processor.
	ProviderPayPal ProviderType = "paypal"
)

// CanonicalStatus is the provider-agnostic payment status vocabulary. Adapters
// translate each processor's own status zoo into exactly these four states.
type CanonicalStatus string

const (
	StatusApproved  CanonicalStatus = "approved"
	StatusPending   CanonicalStatus = "pending"
	StatusRejected  CanonicalStatus = "rejected"
	StatusCancelled CanonicalStatus = "cancelled"
)

// CreatePaymentParams describes one checkout intent.
type CreatePaymentParams struct {
	UserID      string
	UserEmail   string
	PackageID   string
	PackageName string
	Credits     int64
	AmountLocal int64 // minor units
	Currency    string
}

// Preference is the provider's created checkout intent.
type Preference struct {
	ID        string       `json:"id"`
	InitPoint string       `json:"init_point"`
	Provider  ProviderType `json:"provider"`
	Sandbox   bool         `json:"sandbox_mode"`
}

// WebhookResult is the canonical translation of one provider notification.
// Translation is pure: producing a WebhookResult never mutates ledger state.
type WebhookResult struct {
	PaymentID    string
	ExternalID   string
	Status       CanonicalStatus
	StatusDetail string
	CreditsToAdd int64
	UserID       string
	PackageID    string
}

// StatusResult is the canonical answer of a pull-based status query.
type StatusResult struct {
	ExternalID   string
	Status       CanonicalStatus
	StatusDetail string
	CreditsToAdd int64
	UserID       string
	PackageID    string
}

// ExternalReference is embedded opaquely in each provider's correlation field
// (external_reference, custom_id) so a webhook can be tied back to a user and
// package without a database round trip.
type ExternalReference struct {
	UserID    string       `json:"user_id"`
	PackageID string       `json:"package_id"`
	Credits   int64        `json:"credits"`
	Provider  ProviderType `json:"provider"`
}

// Encode serializes the reference for embedding in a provider request.
func (r ExternalReference) Encode() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// DecodeExternalReference parses a correlation field written by Encode.
func DecodeExternalReference(raw string) (*ExternalReference, error) {
	var ref ExternalReference
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		return nil, fmt.Errorf("malformed external reference: %w", err)
	}
	if ref.UserID == "" {
		return nil, fmt.Errorf("external reference missing user id")
	}
	return &ref, nil
}
