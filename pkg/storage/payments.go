package storage

import (
	"context"
	"time"

	"github.com/prepally/credits-engine/pkg/models"
)

// PaymentReader defines the interface for reading payment records.
type PaymentReader interface {
	// GetPaymentRecord retrieves a payment record by its internal ID.
	GetPaymentRecord(ctx context.Context, id string) (*models.PaymentRecord, error)

	// GetPaymentByPreferenceID retrieves a payment record by the provider's
	// checkout preference / order id.
	GetPaymentByPreferenceID(ctx context.Context, preferenceID string) (*models.PaymentRecord, error)

	// GetPaymentByExternalID retrieves a payment record by the provider's
	// payment id, assigned when the payment is confirmed.
	GetPaymentByExternalID(ctx context.Context, externalID string) (*models.PaymentRecord, error)

	// GetPendingPaymentForUser retrieves the most recent PENDING record for a
	// user and package. Fallback correlation for providers whose payment
	// notifications carry neither the preference id nor a previously stored
	// external id.
	GetPendingPaymentForUser(ctx context.Context, userID, packageID string) (*models.PaymentRecord, error)

	// ListStalePendingPayments retrieves PENDING records created before the
	// given age, for the scheduled reconciliation sweep.
	ListStalePendingPayments(ctx context.Context, maxAge time.Duration) ([]models.PaymentRecord, error)
}

// PaymentManager defines the interface for creating payment records and
// driving their status transitions.
type PaymentManager interface {
	// CreatePaymentRecord persists a new PENDING record.
	CreatePaymentRecord(ctx context.Context, rec *models.PaymentRecord) (*models.PaymentRecord, error)

	// TransitionPayment moves a record from a non-terminal state into the given
	// status, recording the external payment id and provider status detail.
	// The transition is conditional: a record that already reached a terminal
	// state is left untouched and ErrPaymentAlreadyFinal is returned.
	TransitionPayment(ctx context.Context, id string, status models.PaymentStatus, externalID, statusDetail string) error
}

// PaymentStore combines the reader and manager interfaces.
type PaymentStore interface {
	PaymentReader
	PaymentManager
}
