package payments

import (
	"context"
	"fmt"
	"log/slog"
)

// PreferenceResolver reports the preferred provider for a user, from a stored
// preference or region inference. An empty result means no preference.
type PreferenceResolver func(ctx context.Context, userID string) ProviderType

// StaticResolver returns a resolver that prefers the same provider for every
// user. Useful for deployments that pin one processor via configuration.
func StaticResolver(provider ProviderType) PreferenceResolver {
	return func(context.Context, string) ProviderType { return provider }
}

// Gateway strategy-selects a provider adapter per user with availability-based
// failover. It never touches the wallet or the ledger; callers persist the
// PENDING payment record keyed by the returned preference id before responding.
type Gateway struct {
	adapters []Adapter
	resolver PreferenceResolver
	logger   *slog.Logger
}

// NewGateway creates a Gateway. Registration order is the failover order.
func NewGateway(resolver PreferenceResolver, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{resolver: resolver, logger: logger}
}

// Register adds an adapter to the registry.
func (g *Gateway) Register(adapter Adapter) {
	g.adapters = append(g.adapters, adapter)
}

// Adapter returns the registered adapter for a provider type.
func (g *Gateway) Adapter(provider ProviderType) (Adapter, error) {
	for _, a := range g.adapters {
		if a.Type() == provider {
			return a, nil
		}
	}
	return nil, fmt.Errorf("unknown payment provider %q", provider)
}

// ProviderForUser resolves the adapter to use for a user: the preferred
// provider when it is usable, an available alternate otherwise, and
// ErrNoProviderAvailable when none qualifies.
func (g *Gateway) ProviderForUser(ctx context.Context, userID string) (Adapter, error) {
	var preferred ProviderType
	if g.resolver != nil {
		preferred = g.resolver(ctx, userID)
	}

	if preferred != "" {
		if a, err := g.Adapter(preferred); err == nil {
			if a.Available() {
				return a, nil
			}
			g.logger.Warn("preferred payment provider unavailable, falling back",
				"user_id", userID, "provider", preferred)
		}
	}

	for _, a := range g.adapters {
		if a.Type() == preferred {
			continue
		}
		if a.Available() {
			return a, nil
		}
	}
	return nil, ErrNoProviderAvailable
}

// CreatePayment creates the external checkout intent with the selected adapter.
func (g *Gateway) CreatePayment(ctx context.Context, userID string, params CreatePaymentParams) (*Preference, error) {
	adapter, err := g.ProviderForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	pref, err := adapter.CreatePreference(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("provider %s failed to create payment: %w", adapter.Type(), err)
	}

	g.logger.Info("payment preference created",
		"user_id", userID, "provider", adapter.Type(), "preference_id", pref.ID, "sandbox", pref.Sandbox)
	return pref, nil
}
