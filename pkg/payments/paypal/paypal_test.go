package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prepally/credits-engine/pkg/payments"
)

// paypalStub fakes the token endpoint plus whatever routes a test registers.
func paypalStub(t *testing.T, routes map[string]http.HandlerFunc) (*httptest.Server, *int) {
	t.Helper()
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		json.NewEncoder(w).Encode(map[string]any{"access_token": "token-1", "expires_in": 3600})
	})
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &tokenCalls
}

func newTestAdapter(serverURL string) *Adapter {
	a := New(Config{ClientID: "client-id", ClientSecret: "client-secret", Sandbox: true})
	a.hostURL = serverURL
	return a
}

func TestAvailable(t *testing.T) {
	assert.True(t, New(Config{ClientID: "a", ClientSecret: "b"}).Available())
	assert.False(t, New(Config{ClientID: "a"}).Available())
	assert.False(t, New(Config{}).Available())
}

func TestTokenCaching(t *testing.T) {
	server, tokenCalls := paypalStub(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders/": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]any{"id": "order-1", "status": "CREATED"})
		},
	})

	adapter := newTestAdapter(server.URL)

	_, err := adapter.PaymentStatus(context.Background(), "order-1")
	assert.NoError(t, err)
	_, err = adapter.PaymentStatus(context.Background(), "order-1")
	assert.NoError(t, err)

	// Two API calls, one token fetch.
	assert.Equal(t, 1, *tokenCalls)
}

func TestCreatePreference(t *testing.T) {
	var got orderRequest
	server, _ := paypalStub(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "order-1",
				"status": "CREATED",
				"links": []map[string]string{
					{"rel": "self", "href": "https://paypal.example/self"},
					{"rel": "approve", "href": "https://paypal.example/approve"},
				},
			})
		},
	})

	adapter := newTestAdapter(server.URL)
	pref, err := adapter.CreatePreference(context.Background(), payments.CreatePaymentParams{
		UserID:      "user-a",
		PackageID:   "pro",
		PackageName: "Pro Pack",
		Credits:     40,
		AmountLocal: 5499,
		Currency:    "USD",
	})

	assert.NoError(t, err)
	assert.Equal(t, "order-1", pref.ID)
	assert.Equal(t, "https://paypal.example/approve", pref.InitPoint)
	assert.Equal(t, payments.ProviderPayPal, pref.Provider)

	assert.Equal(t, "CAPTURE", got.Intent)
	assert.Len(t, got.PurchaseUnits, 1)
	assert.Equal(t, "54.99", got.PurchaseUnits[0].Amount.Value)
	ref, err := payments.DecodeExternalReference(got.PurchaseUnits[0].CustomID)
	assert.NoError(t, err)
	assert.Equal(t, int64(40), ref.Credits)
}

func captureEvent(t *testing.T, eventType, status string, ref payments.ExternalReference) []byte {
	t.Helper()
	resource := map[string]any{
		"id":        "cap-1",
		"status":    status,
		"custom_id": ref.Encode(),
		"supplementary_data": map[string]any{
			"related_ids": map[string]string{"order_id": "order-1"},
		},
	}
	b, err := json.Marshal(map[string]any{
		"id":         "WH-1",
		"event_type": eventType,
		"resource":   resource,
	})
	assert.NoError(t, err)
	return b
}

func TestHandleWebhookCapture(t *testing.T) {
	ref := payments.ExternalReference{UserID: "user-a", PackageID: "pro", Credits: 40, Provider: payments.ProviderPayPal}
	adapter := New(Config{}) // no webhook id: signature check skipped

	t.Run("Completed", func(t *testing.T) {
		payload := captureEvent(t, "PAYMENT.CAPTURE.COMPLETED", "COMPLETED", ref)
		result, err := adapter.HandleWebhook(context.Background(), payload, http.Header{}, url.Values{})

		assert.NoError(t, err)
		assert.Equal(t, "order-1", result.PaymentID)
		assert.Equal(t, "cap-1", result.ExternalID)
		assert.Equal(t, payments.StatusApproved, result.Status)
		assert.Equal(t, int64(40), result.CreditsToAdd)
		assert.Equal(t, "user-a", result.UserID)
	})

	t.Run("Denied", func(t *testing.T) {
		payload := captureEvent(t, "PAYMENT.CAPTURE.DENIED", "DECLINED", ref)
		result, err := adapter.HandleWebhook(context.Background(), payload, http.Header{}, url.Values{})

		assert.NoError(t, err)
		assert.Equal(t, payments.StatusRejected, result.Status)
	})

	t.Run("Informational Event", func(t *testing.T) {
		payload := []byte(`{"id":"WH-2","event_type":"CUSTOMER.DISPUTE.CREATED"}`)
		result, err := adapter.HandleWebhook(context.Background(), payload, http.Header{}, url.Values{})

		assert.NoError(t, err)
		assert.Nil(t, result)
	})
}

func TestHandleWebhookOrderApproved(t *testing.T) {
	ref := payments.ExternalReference{UserID: "user-a", PackageID: "pro", Credits: 40, Provider: payments.ProviderPayPal}

	server, _ := paypalStub(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders/order-1/capture": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "order-1",
				"status": "COMPLETED",
				"purchase_units": []map[string]any{{
					"custom_id": ref.Encode(),
					"payments": map[string]any{
						"captures": []map[string]any{{"id": "cap-1", "status": "COMPLETED"}},
					},
				}},
			})
		},
	})

	adapter := newTestAdapter(server.URL)
	payload := []byte(`{"id":"WH-3","event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"order-1","status":"APPROVED"}}`)
	result, err := adapter.HandleWebhook(context.Background(), payload, http.Header{}, url.Values{})

	assert.NoError(t, err)
	assert.Equal(t, "order-1", result.PaymentID)
	assert.Equal(t, "cap-1", result.ExternalID)
	assert.Equal(t, payments.StatusApproved, result.Status)
	assert.Equal(t, int64(40), result.CreditsToAdd)
}

func TestVerifyNotification(t *testing.T) {
	newServer := func(status string) *httptest.Server {
		server, _ := paypalStub(t, map[string]http.HandlerFunc{
			"/v1/notifications/verify-webhook-signature": func(w http.ResponseWriter, r *http.Request) {
				var req verifySignatureRequest
				json.NewDecoder(r.Body).Decode(&req)
				assert.Equal(t, "wh-id-1", req.WebhookID)
				fmt.Fprintf(w, `{"verification_status":%q}`, status)
			},
		})
		return server
	}

	t.Run("Success", func(t *testing.T) {
		server := newServer("SUCCESS")
		adapter := newTestAdapter(server.URL)
		adapter.cfg.WebhookID = "wh-id-1"

		err := adapter.VerifyNotification(context.Background(), []byte(`{}`), http.Header{}, url.Values{})
		assert.NoError(t, err)
	})

	t.Run("Failure", func(t *testing.T) {
		server := newServer("FAILURE")
		adapter := newTestAdapter(server.URL)
		adapter.cfg.WebhookID = "wh-id-1"

		err := adapter.VerifyNotification(context.Background(), []byte(`{}`), http.Header{}, url.Values{})
		assert.ErrorIs(t, err, payments.ErrWebhookAuth)
	})
}

func TestDeliveryID(t *testing.T) {
	adapter := New(Config{})

	h := http.Header{}
	h.Set("Paypal-Transmission-Id", "tx-1")
	assert.Equal(t, "tx-1", adapter.DeliveryID(nil, h, url.Values{}))

	assert.Equal(t, "WH-9", adapter.DeliveryID([]byte(`{"id":"WH-9"}`), http.Header{}, url.Values{}))
}

func TestMapCaptureStatus(t *testing.T) {
	assert.Equal(t, payments.StatusApproved, mapCaptureStatus("COMPLETED"))
	assert.Equal(t, payments.StatusPending, mapCaptureStatus("PENDING"))
	assert.Equal(t, payments.StatusRejected, mapCaptureStatus("DECLINED"))
	assert.Equal(t, payments.StatusRejected, mapCaptureStatus("FAILED"))
	assert.Equal(t, payments.StatusCancelled, mapCaptureStatus("REFUNDED"))
}

func TestMapOrderStatus(t *testing.T) {
	assert.Equal(t, payments.StatusApproved, mapOrderStatus("COMPLETED"))
	assert.Equal(t, payments.StatusPending, mapOrderStatus("APPROVED"))
	assert.Equal(t, payments.StatusPending, mapOrderStatus("PAYER_ACTION_REQUIRED"))
	assert.Equal(t, payments.StatusCancelled, mapOrderStatus("VOIDED"))
}
