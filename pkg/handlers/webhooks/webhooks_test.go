package webhooks_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	webhookhandlers "github.com/prepally/credits-engine/pkg/handlers/webhooks"
	"github.com/prepally/credits-engine/pkg/ledger"
	"github.com/prepally/credits-engine/pkg/models"
	"github.com/prepally/credits-engine/pkg/payments"
	"github.com/prepally/credits-engine/pkg/storage"
	"github.com/prepally/credits-engine/pkg/storage/mocks"
	"github.com/prepally/credits-engine/pkg/webhooks"
)

type fakeAdapter struct {
	result  *payments.WebhookResult
	err     error
	authErr error
}

func (f *fakeAdapter) Type() payments.ProviderType { return payments.ProviderMercadoPago }
func (f *fakeAdapter) Available() bool             { return true }

func (f *fakeAdapter) CreatePreference(context.Context, payments.CreatePaymentParams) (*payments.Preference, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAdapter) VerifyNotification(context.Context, []byte, http.Header, url.Values) error {
	return f.authErr
}

func (f *fakeAdapter) DeliveryID([]byte, http.Header, url.Values) string { return "" }

func (f *fakeAdapter) HandleWebhook(context.Context, []byte, http.Header, url.Values) (*payments.WebhookResult, error) {
	return f.result, f.err
}

func (f *fakeAdapter) PaymentStatus(context.Context, string) (*payments.StatusResult, error) {
	return nil, errors.New("not implemented")
}

func newRouter(mockStorage *mocks.Storage, adapter payments.Adapter) *chi.Mux {
	gateway := payments.NewGateway(nil, nil)
	gateway.Register(adapter)
	reconciler := webhooks.NewReconciler(mockStorage, ledger.NewEngine(mockStorage, nil), gateway, nil)
	h := webhookhandlers.NewWebhooksHandler(reconciler)

	r := chi.NewRouter()
	r.Post("/webhooks/{provider}", h.HandleWebhook)
	return r
}

func TestHandleWebhook(t *testing.T) {
	t.Run("Approved Notification Returns 200", func(t *testing.T) {
		adapter := &fakeAdapter{result: &payments.WebhookResult{
			ExternalID:   "mp-9",
			Status:       payments.StatusApproved,
			CreditsToAdd: 15,
		}}

		mockStorage := new(mocks.Storage)
		mockStorage.On("GetPaymentByExternalID", mock.Anything, "mp-9").
			Return(&models.PaymentRecord{ID: "pay-1", UserID: "user-a", PackageName: "Standard Pack", CreditsAmount: 15, Status: models.PaymentPending}, nil)
		mockStorage.On("TransitionPayment", mock.Anything, "pay-1", models.PaymentApproved, "mp-9", "").Return(nil)
		mockStorage.On("ApplyEntry", mock.Anything, mock.Anything).
			Return(&models.Wallet{UserID: "user-a", Balance: 15}, nil)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", bytes.NewReader([]byte(`{}`)))
		rr := httptest.NewRecorder()
		newRouter(mockStorage, adapter).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var outcome webhooks.Outcome
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &outcome))
		assert.Equal(t, "success", outcome.Status)
		assert.Equal(t, "pay-1", outcome.PaymentID)
		mockStorage.AssertExpectations(t)
	})

	t.Run("Bad Signature Returns 401", func(t *testing.T) {
		adapter := &fakeAdapter{authErr: payments.ErrWebhookAuth}

		req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", bytes.NewReader([]byte(`{}`)))
		rr := httptest.NewRecorder()
		newRouter(new(mocks.Storage), adapter).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Processing Failure Still Acknowledged", func(t *testing.T) {
		adapter := &fakeAdapter{err: errors.New("provider api down")}

		req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", bytes.NewReader([]byte(`{}`)))
		rr := httptest.NewRecorder()
		newRouter(new(mocks.Storage), adapter).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var outcome webhooks.Outcome
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &outcome))
		assert.Equal(t, "error", outcome.Status)
	})

	t.Run("Unmatched Record Still Acknowledged", func(t *testing.T) {
		adapter := &fakeAdapter{result: &payments.WebhookResult{
			ExternalID: "mp-unknown",
			Status:     payments.StatusApproved,
		}}

		mockStorage := new(mocks.Storage)
		mockStorage.On("GetPaymentByExternalID", mock.Anything, "mp-unknown").
			Return(nil, storage.ErrPaymentNotFound)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", bytes.NewReader([]byte(`{}`)))
		rr := httptest.NewRecorder()
		newRouter(mockStorage, adapter).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var outcome webhooks.Outcome
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &outcome))
		assert.Equal(t, "error", outcome.Status)
	})
}
