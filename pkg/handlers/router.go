package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	paymenthandlers "github.com/prepally/credits-engine/pkg/handlers/payments"
	wallethandlers "github.com/prepally/credits-engine/pkg/handlers/wallets"
	webhookhandlers "github.com/prepally/credits-engine/pkg/handlers/webhooks"
	"github.com/prepally/credits-engine/pkg/middleware"
)

// Deps bundles the handler groups mounted on the router.
type Deps struct {
	Payments *paymenthandlers.PaymentsHandler
	Wallets  *wallethandlers.WalletsHandler
	Webhooks *webhookhandlers.WebhooksHandler
	Logger   *slog.Logger
}

// NewRouter assembles the chi router with all API routes.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewStructuredLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/", deps.Payments.CreatePayment)
		r.Get("/packages", deps.Payments.ListPackages)
		r.Get("/by-preference/{preferenceID}", deps.Payments.GetPaymentByPreference)
		r.Get("/{paymentID}", deps.Payments.GetPayment)
		r.Post("/{paymentID}/verify", deps.Payments.VerifyPayment)
	})

	r.Route("/wallets", func(r chi.Router) {
		r.Get("/{userID}", deps.Wallets.GetWallet)
		r.Get("/{userID}/ledger", deps.Wallets.GetHistory)
	})

	r.Post("/webhooks/{provider}", deps.Webhooks.HandleWebhook)

	return r
}
