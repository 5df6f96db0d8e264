package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prepally/credits-engine/pkg/models"
	"github.com/prepally/credits-engine/pkg/payments"
	"github.com/prepally/credits-engine/pkg/scheduler"
	"github.com/prepally/credits-engine/pkg/storage"
	"github.com/prepally/credits-engine/pkg/webhooks"
)

// verificationDelay is how long after checkout the scheduled fallback
// verification runs if no webhook settled the payment first.
const verificationDelay = 10 * time.Minute

// PaymentsHandler holds the dependencies for payment-related handlers.
type PaymentsHandler struct {
	Store      storage.PaymentStore
	Gateway    *payments.Gateway
	Reconciler *webhooks.Reconciler
	Scheduler  scheduler.Scheduler
	Logger     *slog.Logger
}

// NewPaymentsHandler creates a new PaymentsHandler.
func NewPaymentsHandler(store storage.PaymentStore, gateway *payments.Gateway, reconciler *webhooks.Reconciler, sched scheduler.Scheduler, logger *slog.Logger) *PaymentsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentsHandler{Store: store, Gateway: gateway, Reconciler: reconciler, Scheduler: sched, Logger: logger}
}

// NewPaymentRequest is the checkout request body.
type NewPaymentRequest struct {
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	PackageID string `json:"package_id"`
	Currency  string `json:"currency"`
}

// NewPaymentResponse is the checkout response body.
type NewPaymentResponse struct {
	PaymentID    string `json:"payment_id"`
	PreferenceID string `json:"preference_id"`
	RedirectURL  string `json:"redirect_url"`
	Provider     string `json:"provider"`
	SandboxMode  bool   `json:"sandbox_mode"`
}

// CreatePayment handles the logic for starting a credit purchase: select a
// provider, create the external intent, and persist the PENDING record before
// responding so an early webhook can already be matched.
func (h *PaymentsHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req NewPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	pkg, ok := models.PackageByID(req.PackageID)
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown package %q", req.PackageID), http.StatusBadRequest)
		return
	}

	amount, currency := pkg.Price(req.Currency)
	pref, err := h.Gateway.CreatePayment(r.Context(), req.UserID, payments.CreatePaymentParams{
		UserID:      req.UserID,
		UserEmail:   req.UserEmail,
		PackageID:   pkg.ID,
		PackageName: pkg.Name,
		Credits:     pkg.Credits,
		AmountLocal: amount,
		Currency:    currency,
	})
	if err != nil {
		if errors.Is(err, payments.ErrNoProviderAvailable) {
			http.Error(w, "No payment provider is currently available", http.StatusServiceUnavailable)
		} else {
			http.Error(w, fmt.Sprintf("Failed to create payment: %v", err), http.StatusBadGateway)
		}
		return
	}

	rec, err := h.Store.CreatePaymentRecord(r.Context(), &models.PaymentRecord{
		UserID:        req.UserID,
		PackageID:     pkg.ID,
		PackageName:   pkg.Name,
		CreditsAmount: pkg.Credits,
		AmountLocal:   amount,
		Currency:      currency,
		Provider:      string(pref.Provider),
		PreferenceID:  pref.ID,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to persist payment record: %v", err), http.StatusInternalServerError)
		return
	}

	// Fallback for lost webhooks; failure to schedule is not fatal because the
	// manual verification path covers the same ground.
	if h.Scheduler != nil {
		task := scheduler.VerificationTask{PaymentRecordID: rec.ID}
		if err := h.Scheduler.ScheduleVerification(r.Context(), task, verificationDelay); err != nil {
			h.Logger.Warn("failed to schedule payment verification", "payment_record_id", rec.ID, "error", err)
		}
	}

	resp := NewPaymentResponse{
		PaymentID:    rec.ID,
		PreferenceID: pref.ID,
		RedirectURL:  pref.InitPoint,
		Provider:     string(pref.Provider),
		SandboxMode:  pref.Sandbox,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

// GetPayment handles the logic for retrieving a payment record by its ID.
func (h *PaymentsHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetPaymentRecord(r.Context(), chi.URLParam(r, "paymentID"))
	if err != nil {
		if errors.Is(err, storage.ErrPaymentNotFound) {
			http.Error(w, "Payment not found", http.StatusNotFound)
		} else {
			http.Error(w, fmt.Sprintf("Failed to retrieve payment: %v", err), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetPaymentByPreference handles lookup by the provider's preference/order id,
// used by the post-redirect confirmation page.
func (h *PaymentsHandler) GetPaymentByPreference(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetPaymentByPreferenceID(r.Context(), chi.URLParam(r, "preferenceID"))
	if err != nil {
		if errors.Is(err, storage.ErrPaymentNotFound) {
			http.Error(w, "Payment not found", http.StatusNotFound)
		} else {
			http.Error(w, fmt.Sprintf("Failed to retrieve payment: %v", err), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// VerifyPayment handles the manual reconciliation path: re-check the payment
// with its provider and settle it through the same approval code the webhook
// uses.
func (h *PaymentsHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Reconciler.VerifyPayment(r.Context(), chi.URLParam(r, "paymentID"))
	if err != nil {
		if errors.Is(err, storage.ErrPaymentNotFound) {
			http.Error(w, "Payment not found", http.StatusNotFound)
		} else {
			http.Error(w, fmt.Sprintf("Failed to verify payment: %v", err), http.StatusBadGateway)
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListPackages returns the static credit package catalog.
func (h *PaymentsHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Packages())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}
