package webhooks

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prepally/credits-engine/pkg/payments"
	"github.com/prepally/credits-engine/pkg/webhooks"
)

// maxPayloadBytes bounds webhook bodies; provider notifications are small.
const maxPayloadBytes = 1 << 20

// WebhooksHandler holds the dependencies for provider notification handlers.
type WebhooksHandler struct {
	Reconciler *webhooks.Reconciler
}

// NewWebhooksHandler creates a new WebhooksHandler.
func NewWebhooksHandler(reconciler *webhooks.Reconciler) *WebhooksHandler {
	return &WebhooksHandler{Reconciler: reconciler}
}

// HandleWebhook handles one provider notification. Everything except an
// authentication failure is acknowledged with 200 so providers stop
// redelivering; the outcome body records what actually happened.
func (h *WebhooksHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	provider := payments.ProviderType(chi.URLParam(r, "provider"))

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	outcome, err := h.Reconciler.Process(r.Context(), provider, payload, r.Header, r.URL.Query())
	if err != nil {
		if errors.Is(err, payments.ErrWebhookAuth) {
			http.Error(w, "Invalid webhook signature", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Failed to process webhook", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(outcome)
}
