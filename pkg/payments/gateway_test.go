package payments_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prepally/credits-engine/pkg/payments"
)

// fakeAdapter is a minimal in-memory Adapter for gateway tests.
type fakeAdapter struct {
	provider  payments.ProviderType
	available bool
	prefErr   error
	created   int
}

func (f *fakeAdapter) Type() payments.ProviderType { return f.provider }
func (f *fakeAdapter) Available() bool             { return f.available }

func (f *fakeAdapter) CreatePreference(ctx context.Context, params payments.CreatePaymentParams) (*payments.Preference, error) {
	if f.prefErr != nil {
		return nil, f.prefErr
	}
	f.created++
	return &payments.Preference{ID: "pref-" + string(f.provider), InitPoint: "https://pay.example/" + string(f.provider), Provider: f.provider}, nil
}

func (f *fakeAdapter) VerifyNotification(ctx context.Context, payload []byte, headers http.Header, query url.Values) error {
	return nil
}

func (f *fakeAdapter) DeliveryID(payload []byte, headers http.Header, query url.Values) string {
	return ""
}

func (f *fakeAdapter) HandleWebhook(ctx context.Context, payload []byte, headers http.Header, query url.Values) (*payments.WebhookResult, error) {
	return nil, nil
}

func (f *fakeAdapter) PaymentStatus(ctx context.Context, paymentID string) (*payments.StatusResult, error) {
	return nil, errors.New("not implemented")
}

func TestProviderForUser(t *testing.T) {
	mp := &fakeAdapter{provider: payments.ProviderMercadoPago, available: true}
	pp := &fakeAdapter{provider: payments.ProviderPayPal, available: true}

	newGateway := func(preferred payments.ProviderType, adapters ...payments.Adapter) *payments.Gateway {
		g := payments.NewGateway(payments.StaticResolver(preferred), nil)
		for _, a := range adapters {
			g.Register(a)
		}
		return g
	}

	t.Run("Preferred Provider Wins", func(t *testing.T) {
		g := newGateway(payments.ProviderPayPal, mp, pp)

		adapter, err := g.ProviderForUser(context.Background(), "user-a")

		assert.NoError(t, err)
		assert.Equal(t, payments.ProviderPayPal, adapter.Type())
	})

	t.Run("Falls Back When Preferred Unavailable", func(t *testing.T) {
		downPP := &fakeAdapter{provider: payments.ProviderPayPal, available: false}
		g := newGateway(payments.ProviderPayPal, mp, downPP)

		adapter, err := g.ProviderForUser(context.Background(), "user-a")

		assert.NoError(t, err)
		assert.Equal(t, payments.ProviderMercadoPago, adapter.Type())
	})

	t.Run("Registration Order Decides Without Preference", func(t *testing.T) {
		g := newGateway("", mp, pp)

		adapter, err := g.ProviderForUser(context.Background(), "user-a")

		assert.NoError(t, err)
		assert.Equal(t, payments.ProviderMercadoPago, adapter.Type())
	})

	t.Run("Nothing Available", func(t *testing.T) {
		g := newGateway("",
			&fakeAdapter{provider: payments.ProviderMercadoPago},
			&fakeAdapter{provider: payments.ProviderPayPal},
		)

		_, err := g.ProviderForUser(context.Background(), "user-a")

		assert.ErrorIs(t, err, payments.ErrNoProviderAvailable)
	})
}

func TestGatewayCreatePayment(t *testing.T) {
	t.Run("Delegates To Selected Adapter", func(t *testing.T) {
		mp := &fakeAdapter{provider: payments.ProviderMercadoPago, available: true}
		g := payments.NewGateway(nil, nil)
		g.Register(mp)

		pref, err := g.CreatePayment(context.Background(), "user-a", payments.CreatePaymentParams{PackageID: "standard"})

		assert.NoError(t, err)
		assert.Equal(t, payments.ProviderMercadoPago, pref.Provider)
		assert.Equal(t, 1, mp.created)
	})

	t.Run("Wraps Adapter Failure", func(t *testing.T) {
		mp := &fakeAdapter{provider: payments.ProviderMercadoPago, available: true, prefErr: errors.New("api down")}
		g := payments.NewGateway(nil, nil)
		g.Register(mp)

		_, err := g.CreatePayment(context.Background(), "user-a", payments.CreatePaymentParams{})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "mercadopago")
	})
}

func TestExternalReferenceRoundTrip(t *testing.T) {
	ref := payments.ExternalReference{UserID: "user-a", PackageID: "pro", Credits: 40, Provider: payments.ProviderPayPal}

	decoded, err := payments.DecodeExternalReference(ref.Encode())

	assert.NoError(t, err)
	assert.Equal(t, &ref, decoded)

	t.Run("Rejects Garbage", func(t *testing.T) {
		_, err := payments.DecodeExternalReference("not json")
		assert.Error(t, err)
	})

	t.Run("Rejects Missing User", func(t *testing.T) {
		_, err := payments.DecodeExternalReference(`{"package_id":"pro"}`)
		assert.Error(t, err)
	})
}
