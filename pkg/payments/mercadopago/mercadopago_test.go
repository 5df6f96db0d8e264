package mercadopago

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prepally/credits-engine/pkg/payments"
)

func signedHeaders(secret, dataID, requestID, ts string) http.Header {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))

	h := http.Header{}
	h.Set("x-request-id", requestID)
	h.Set("x-signature", fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return h
}

func TestAvailable(t *testing.T) {
	t.Run("Sandbox Requires Test Token", func(t *testing.T) {
		assert.True(t, New(Config{AccessToken: "TEST-abc", Sandbox: true}).Available())
		assert.False(t, New(Config{AccessToken: "APP_USR-abc", Sandbox: true}).Available())
	})

	t.Run("Production Requires Live Token", func(t *testing.T) {
		assert.True(t, New(Config{AccessToken: "APP_USR-abc"}).Available())
		assert.False(t, New(Config{AccessToken: "TEST-abc"}).Available())
	})

	t.Run("No Token", func(t *testing.T) {
		assert.False(t, New(Config{Sandbox: true}).Available())
	})
}

func TestVerifyNotification(t *testing.T) {
	adapter := New(Config{WebhookSecret: "shhh"})
	query := url.Values{"data.id": {"12345"}}
	ctx := context.Background()

	t.Run("Valid", func(t *testing.T) {
		headers := signedHeaders("shhh", "12345", "req-1", "1700000000")
		assert.NoError(t, adapter.VerifyNotification(ctx, nil, headers, query))
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		headers := signedHeaders("other", "12345", "req-1", "1700000000")
		err := adapter.VerifyNotification(ctx, nil, headers, query)
		assert.ErrorIs(t, err, payments.ErrWebhookAuth)
	})

	t.Run("Missing Header", func(t *testing.T) {
		err := adapter.VerifyNotification(ctx, nil, http.Header{}, query)
		assert.ErrorIs(t, err, payments.ErrWebhookAuth)
	})

	t.Run("Malformed Header", func(t *testing.T) {
		h := http.Header{}
		h.Set("x-signature", "garbage")
		err := adapter.VerifyNotification(ctx, nil, h, query)
		assert.ErrorIs(t, err, payments.ErrWebhookAuth)
	})

	t.Run("Data ID From Body", func(t *testing.T) {
		payload := []byte(`{"type":"payment","data":{"id":"12345"}}`)
		headers := signedHeaders("shhh", "12345", "req-1", "1700000000")
		assert.NoError(t, adapter.VerifyNotification(ctx, payload, headers, url.Values{}))
	})

	t.Run("No Secret Skips Check", func(t *testing.T) {
		open := New(Config{})
		assert.NoError(t, open.VerifyNotification(ctx, nil, http.Header{}, url.Values{}))
	})
}

func TestClassify(t *testing.T) {
	adapter := New(Config{})

	t.Run("Webhook Payment Event", func(t *testing.T) {
		id := adapter.classify([]byte(`{"type":"payment","action":"payment.updated","data":{"id":"777"}}`), url.Values{})
		assert.Equal(t, "777", id)
	})

	t.Run("IPN Payment Topic", func(t *testing.T) {
		id := adapter.classify(nil, url.Values{"topic": {"payment"}, "id": {"888"}})
		assert.Equal(t, "888", id)
	})

	t.Run("Merchant Order Is Informational", func(t *testing.T) {
		assert.Empty(t, adapter.classify(nil, url.Values{"topic": {"merchant_order"}, "id": {"999"}}))
		assert.Empty(t, adapter.classify([]byte(`{"type":"merchant_order"}`), url.Values{}))
	})

	t.Run("Garbage Body", func(t *testing.T) {
		assert.Empty(t, adapter.classify([]byte("not json"), url.Values{}))
	})
}

func TestDeliveryID(t *testing.T) {
	adapter := New(Config{})

	h := http.Header{}
	h.Set("x-request-id", "req-42")
	assert.Equal(t, "req-42", adapter.DeliveryID(nil, h, url.Values{}))

	q := url.Values{"topic": {"payment"}, "id": {"123"}}
	assert.Equal(t, "payment:123", adapter.DeliveryID(nil, http.Header{}, q))

	assert.Empty(t, adapter.DeliveryID(nil, http.Header{}, url.Values{}))
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, payments.StatusApproved, mapStatus("approved"))
	assert.Equal(t, payments.StatusPending, mapStatus("in_process"))
	assert.Equal(t, payments.StatusPending, mapStatus("authorized"))
	assert.Equal(t, payments.StatusRejected, mapStatus("rejected"))
	assert.Equal(t, payments.StatusCancelled, mapStatus("cancelled"))
	assert.Equal(t, payments.StatusCancelled, mapStatus("charged_back"))
}

func TestMapStatusDetail(t *testing.T) {
	assert.Equal(t, payments.DeclineInsufficientFunds, mapStatusDetail("cc_rejected_insufficient_amount"))
	assert.Equal(t, payments.DeclineBadCVV, mapStatusDetail("cc_rejected_bad_filled_security_code"))
	assert.Equal(t, payments.DeclineExpiredCard, mapStatusDetail("cc_rejected_card_expired"))
	assert.Equal(t, payments.DeclineHighRisk, mapStatusDetail("cc_rejected_high_risk"))
	assert.Equal(t, payments.DeclineCallIssuer, mapStatusDetail("cc_rejected_call_for_authorize"))
	assert.Equal(t, payments.DeclineOther, mapStatusDetail("cc_rejected_something_new"))
	assert.Empty(t, mapStatusDetail("accredited"))
	assert.Empty(t, mapStatusDetail(""))
}

func TestHandleWebhookFetchesPayment(t *testing.T) {
	ref := payments.ExternalReference{UserID: "user-a", PackageID: "standard", Credits: 15, Provider: payments.ProviderMercadoPago}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/777", r.URL.Path)
		assert.Equal(t, "Bearer TEST-abc", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"id":                 777,
			"status":             "approved",
			"status_detail":      "accredited",
			"external_reference": ref.Encode(),
		})
	}))
	defer server.Close()

	adapter := New(Config{AccessToken: "TEST-abc", Sandbox: true})
	adapter.baseURL = server.URL

	payload := []byte(`{"type":"payment","data":{"id":"777"}}`)
	result, err := adapter.HandleWebhook(context.Background(), payload, http.Header{}, url.Values{})

	assert.NoError(t, err)
	assert.Equal(t, "777", result.ExternalID)
	assert.Equal(t, payments.StatusApproved, result.Status)
	assert.Equal(t, int64(15), result.CreditsToAdd)
	assert.Equal(t, "user-a", result.UserID)
	assert.Equal(t, "standard", result.PackageID)
}

func TestCreatePreference(t *testing.T) {
	t.Run("Sandbox Init Point", func(t *testing.T) {
		var got preferenceRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/checkout/preferences", r.URL.Path)
			json.NewDecoder(r.Body).Decode(&got)
			json.NewEncoder(w).Encode(map[string]string{
				"id":                 "pref-1",
				"init_point":         "https://mp.example/live",
				"sandbox_init_point": "https://mp.example/sandbox",
			})
		}))
		defer server.Close()

		adapter := New(Config{AccessToken: "TEST-abc", Sandbox: true})
		adapter.baseURL = server.URL

		pref, err := adapter.CreatePreference(context.Background(), payments.CreatePaymentParams{
			UserID:      "user-a",
			PackageID:   "standard",
			PackageName: "Standard Pack",
			Credits:     15,
			AmountLocal: 2499,
			Currency:    "USD",
		})

		assert.NoError(t, err)
		assert.Equal(t, "pref-1", pref.ID)
		assert.Equal(t, "https://mp.example/sandbox", pref.InitPoint)
		assert.True(t, pref.Sandbox)

		assert.Len(t, got.Items, 1)
		assert.Equal(t, 24.99, got.Items[0].UnitPrice)
		ref, err := payments.DecodeExternalReference(got.ExternalReference)
		assert.NoError(t, err)
		assert.Equal(t, "user-a", ref.UserID)
		assert.Equal(t, int64(15), ref.Credits)
		// Local deployments get no redirect or notification URLs.
		assert.Nil(t, got.BackURLs)
		assert.Empty(t, got.NotificationURL)
	})

	t.Run("Public Base URL Attaches Callbacks", func(t *testing.T) {
		var got preferenceRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			json.NewEncoder(w).Encode(map[string]string{"id": "pref-2", "init_point": "https://mp.example/live"})
		}))
		defer server.Close()

		adapter := New(Config{AccessToken: "APP_USR-abc", PublicBaseURL: "https://credits.example.com/"})
		adapter.baseURL = server.URL

		_, err := adapter.CreatePreference(context.Background(), payments.CreatePaymentParams{UserID: "user-a", AmountLocal: 999, Currency: "USD"})

		assert.NoError(t, err)
		assert.Equal(t, "https://credits.example.com/webhooks/mercadopago", got.NotificationURL)
		assert.Equal(t, "https://credits.example.com/payments/return/success", got.BackURLs.Success)
	})
}

func TestPublicBase(t *testing.T) {
	assert.Empty(t, publicBase(""))
	assert.Empty(t, publicBase("http://localhost:8080"))
	assert.Empty(t, publicBase("http://127.0.0.1:8080"))
	assert.Equal(t, "https://credits.example.com", publicBase("https://credits.example.com/"))
}
