package webhooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prepally/credits-engine/pkg/ledger"
	"github.com/prepally/credits-engine/pkg/models"
	"github.com/prepally/credits-engine/pkg/payments"
	"github.com/prepally/credits-engine/pkg/storage"
)

// replayTTL bounds the processed-delivery-id set. The set is a transport
// optimization, the ledger's idempotency keys are the mechanism that never
// expires.
const replayTTL = 24 * time.Hour

// Outcome is what a webhook call resolves to. The HTTP layer acknowledges all
// of these with 200 so providers do not retry indefinitely on our bugs;
// signature failures are the one exception and map to 401.
type Outcome struct {
	Status    string `json:"status"` // success | ignored | error
	Detail    string `json:"detail,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
}

// Store is the slice of the data layer the reconciler needs.
type Store interface {
	storage.PaymentStore
	storage.WebhookStore
}

// Reconciler drives inbound provider notifications into idempotent credit
// grants. The polling and manual verification paths reuse the same approval
// code, so there is a single route to "credits granted" regardless of how a
// confirmation was discovered.
type Reconciler struct {
	Store   Store
	Engine  *ledger.Engine
	Gateway *payments.Gateway
	Logger  *slog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(store Store, engine *ledger.Engine, gateway *payments.Gateway, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{Store: store, Engine: engine, Gateway: gateway, Logger: logger}
}

// Process runs the per-notification state machine: authenticate, suppress
// replays, classify, translate, and apply the canonical result. The returned
// error is non-nil only for authentication failures; everything else is folded
// into the Outcome so the transport can acknowledge it.
func (r *Reconciler) Process(ctx context.Context, provider payments.ProviderType, payload []byte, headers http.Header, query url.Values) (*Outcome, error) {
	adapter, err := r.Gateway.Adapter(provider)
	if err != nil {
		return &Outcome{Status: "error", Detail: err.Error()}, nil
	}

	// Authenticate before anything else acts on the notification. An unsigned
	// request must not consume the delivery id, or it would shadow the
	// provider's genuine signed delivery.
	if err := adapter.VerifyNotification(ctx, payload, headers, query); err != nil {
		if errors.Is(err, payments.ErrWebhookAuth) {
			return nil, err
		}
		r.Logger.Error("webhook verification failed, acknowledged for manual follow-up",
			"provider", provider, "error", err)
		return &Outcome{Status: "error", Detail: err.Error()}, nil
	}

	// Transport-level replay suppression. Atomic check-and-insert: two
	// near-simultaneous deliveries of the same id cannot both pass.
	if deliveryID := adapter.DeliveryID(payload, headers, query); deliveryID != "" {
		err := r.Store.MarkWebhookProcessed(ctx, string(provider), deliveryID, replayTTL)
		if errors.Is(err, storage.ErrDuplicateWebhook) {
			r.Logger.Info("duplicate webhook delivery ignored", "provider", provider, "delivery_id", deliveryID)
			return &Outcome{Status: "ignored", Detail: "duplicate delivery"}, nil
		}
		if err != nil {
			// The guard is an optimization; processing stays safe without it.
			r.Logger.Warn("replay guard unavailable, continuing", "provider", provider, "error", err)
		}
	}

	result, err := adapter.HandleWebhook(ctx, payload, headers, query)
	if errors.Is(err, payments.ErrWebhookAuth) {
		return nil, err
	}
	if err != nil {
		r.Logger.Error("webhook processing failed, acknowledged for manual follow-up",
			"provider", provider, "error", err)
		return &Outcome{Status: "error", Detail: err.Error()}, nil
	}
	if result == nil {
		return &Outcome{Status: "ignored", Detail: "informational notification"}, nil
	}

	return r.applyResult(ctx, provider, result)
}

func (r *Reconciler) applyResult(ctx context.Context, provider payments.ProviderType, result *payments.WebhookResult) (*Outcome, error) {
	rec, err := r.findRecord(ctx, result)
	if err != nil {
		r.Logger.Error("no payment record matches notification, acknowledged for manual follow-up",
			"provider", provider, "external_id", result.ExternalID, "payment_id", result.PaymentID)
		return &Outcome{Status: "error", Detail: "payment record not found"}, nil
	}

	switch result.Status {
	case payments.StatusApproved:
		if result.CreditsToAdd <= 0 {
			result.CreditsToAdd = rec.CreditsAmount
		}
		if err := r.approve(ctx, rec, result.ExternalID, result.StatusDetail, result.CreditsToAdd); err != nil {
			r.Logger.Error("failed to apply approved payment, acknowledged for manual follow-up",
				"payment_record_id", rec.ID, "error", err)
			return &Outcome{Status: "error", Detail: err.Error()}, nil
		}
		return &Outcome{Status: "success", PaymentID: rec.ID}, nil

	case payments.StatusRejected, payments.StatusCancelled:
		status := models.PaymentRejected
		if result.Status == payments.StatusCancelled {
			status = models.PaymentCancelled
		}
		err := r.Store.TransitionPayment(ctx, rec.ID, status, result.ExternalID, result.StatusDetail)
		if err != nil && !errors.Is(err, storage.ErrPaymentAlreadyFinal) {
			return &Outcome{Status: "error", Detail: err.Error()}, nil
		}
		return &Outcome{Status: "success", PaymentID: rec.ID}, nil

	default: // pending / in process, no ledger effect
		err := r.Store.TransitionPayment(ctx, rec.ID, models.PaymentInProcess, result.ExternalID, result.StatusDetail)
		if err != nil && !errors.Is(err, storage.ErrPaymentAlreadyFinal) {
			r.Logger.Warn("failed to mark payment in process", "payment_record_id", rec.ID, "error", err)
		}
		return &Outcome{Status: "success", PaymentID: rec.ID}, nil
	}
}

// findRecord correlates a canonical result back to the payment record: by the
// external payment id, then the preference id, then the embedded user+package
// reference.
func (r *Reconciler) findRecord(ctx context.Context, result *payments.WebhookResult) (*models.PaymentRecord, error) {
	if result.ExternalID != "" {
		if rec, err := r.Store.GetPaymentByExternalID(ctx, result.ExternalID); err == nil {
			return rec, nil
		}
	}
	if result.PaymentID != "" {
		if rec, err := r.Store.GetPaymentByPreferenceID(ctx, result.PaymentID); err == nil {
			return rec, nil
		}
	}
	if result.UserID != "" && result.PackageID != "" {
		return r.Store.GetPendingPaymentForUser(ctx, result.UserID, result.PackageID)
	}
	return nil, storage.ErrPaymentNotFound
}

// approve is the single route by which a payment becomes credits: transition
// the record, then grant through the ledger keyed by the external payment id.
// Both halves are idempotent, so redelivery at any point re-runs safely.
func (r *Reconciler) approve(ctx context.Context, rec *models.PaymentRecord, externalID, statusDetail string, credits int64) error {
	if rec.Status != models.PaymentApproved {
		err := r.Store.TransitionPayment(ctx, rec.ID, models.PaymentApproved, externalID, statusDetail)
		if errors.Is(err, storage.ErrPaymentAlreadyFinal) {
			fresh, ferr := r.Store.GetPaymentRecord(ctx, rec.ID)
			if ferr != nil {
				return ferr
			}
			if fresh.Status != models.PaymentApproved {
				return fmt.Errorf("payment %s already finalized as %s", rec.ID, fresh.Status)
			}
			// Approved by a concurrent delivery; fall through to the grant,
			// which the idempotency key makes a no-op if it already happened.
		} else if err != nil {
			return err
		}
	}

	// Some notification shapes carry no external payment id. Key the grant on
	// the preference id then, so the derived idempotency key stays unique per
	// payment instead of collapsing to a shared prefix.
	grantRef := externalID
	if grantRef == "" {
		grantRef = rec.PreferenceID
	}

	grantResult, err := r.Engine.GrantPurchasedCredits(ctx, rec.UserID, credits, grantRef, rec.PackageName)
	if err != nil {
		return fmt.Errorf("payment approved but credit grant failed: %w", err)
	}

	if grantResult.Duplicate {
		r.Logger.Info("credits already granted for payment", "payment_record_id", rec.ID, "external_id", externalID)
	} else {
		r.Logger.Info("credits granted for approved payment",
			"payment_record_id", rec.ID, "external_id", externalID,
			"user_id", rec.UserID, "credits", credits, "new_balance", grantResult.NewBalance)
	}
	return nil
}

// VerifyPayment is the pull-based safety net for lost or delayed push
// notifications: it queries the provider for the payment's current state and
// feeds the answer through the same approval path the webhook uses.
func (r *Reconciler) VerifyPayment(ctx context.Context, recordID string) (*models.PaymentRecord, error) {
	rec, err := r.Store.GetPaymentRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.Status.IsTerminal() {
		return rec, nil
	}

	adapter, err := r.Gateway.Adapter(payments.ProviderType(rec.Provider))
	if err != nil {
		return nil, err
	}

	queryID := rec.ExternalPaymentID
	if queryID == "" {
		queryID = rec.PreferenceID
	}
	status, err := adapter.PaymentStatus(ctx, queryID)
	if err != nil {
		return nil, fmt.Errorf("provider status query failed: %w", err)
	}

	outcome, err := r.applyResult(ctx, payments.ProviderType(rec.Provider), &payments.WebhookResult{
		PaymentID:    rec.PreferenceID,
		ExternalID:   status.ExternalID,
		Status:       status.Status,
		StatusDetail: status.StatusDetail,
		CreditsToAdd: status.CreditsToAdd,
		UserID:       rec.UserID,
		PackageID:    rec.PackageID,
	})
	if err != nil {
		return nil, err
	}
	if outcome.Status == "error" {
		return nil, errors.New(outcome.Detail)
	}

	return r.Store.GetPaymentRecord(ctx, recordID)
}
