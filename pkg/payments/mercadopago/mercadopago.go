package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prepally/credits-engine/pkg/payments"
)

const apiBaseURL = "https://api.mercadopago.com"

// Sandbox access tokens are prefixed TEST-, production ones APP_USR-. The
// prefix check is what keeps the two credential sets from ever mixing.
const (
	sandboxTokenPrefix    = "TEST-"
	productionTokenPrefix = "APP_USR-"
)

// Config holds the MercadoPago credentials for one environment.
type Config struct {
	AccessToken   string
	WebhookSecret string
	Sandbox       bool
	// PublicBaseURL is where MercadoPago sends webhooks and buyers return to.
	// Left empty (or loopback) no redirect/notification URLs are attached;
	// MercadoPago rejects local targets.
	PublicBaseURL string
}

// Adapter implements payments.Adapter against the MercadoPago checkout API.
type Adapter struct {
	cfg     Config
	client  *http.Client
	baseURL string // overridden in tests
}

// New creates a MercadoPago adapter with a bounded-timeout HTTP client.
func New(cfg Config) *Adapter {
	return &Adapter{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: apiBaseURL,
	}
}

// Make sure we conform to the interface
var _ payments.Adapter = (*Adapter)(nil)

// Type identifies the processor.
func (a *Adapter) Type() payments.ProviderType { return payments.ProviderMercadoPago }

// Available reports whether a token matching the active environment is configured.
func (a *Adapter) Available() bool {
	if a.cfg.AccessToken == "" {
		return false
	}
	if a.cfg.Sandbox {
		return strings.HasPrefix(a.cfg.AccessToken, sandboxTokenPrefix)
	}
	return strings.HasPrefix(a.cfg.AccessToken, productionTokenPrefix)
}

type preferenceRequest struct {
	Items             []preferenceItem `json:"items"`
	Payer             *preferencePayer `json:"payer,omitempty"`
	ExternalReference string           `json:"external_reference"`
	BackURLs          *backURLs        `json:"back_urls,omitempty"`
	AutoReturn        string           `json:"auto_return,omitempty"`
	NotificationURL   string           `json:"notification_url,omitempty"`
}

type preferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type preferencePayer struct {
	Email string `json:"email,omitempty"`
}

type backURLs struct {
	Success string `json:"success"`
	Pending string `json:"pending"`
	Failure string `json:"failure"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CreatePreference creates a checkout preference. The canonical correlation
// payload travels in external_reference so the eventual webhook can be matched
// without a database round trip.
func (a *Adapter) CreatePreference(ctx context.Context, params payments.CreatePaymentParams) (*payments.Preference, error) {
	ref := payments.ExternalReference{
		UserID:    params.UserID,
		PackageID: params.PackageID,
		Credits:   params.Credits,
		Provider:  payments.ProviderMercadoPago,
	}

	req := preferenceRequest{
		Items: []preferenceItem{{
			Title:      params.PackageName,
			Quantity:   1,
			UnitPrice:  float64(params.AmountLocal) / 100,
			CurrencyID: params.Currency,
		}},
		ExternalReference: ref.Encode(),
	}
	if params.UserEmail != "" {
		req.Payer = &preferencePayer{Email: params.UserEmail}
	}
	if base := publicBase(a.cfg.PublicBaseURL); base != "" {
		req.BackURLs = &backURLs{
			Success: base + "/payments/return/success",
			Pending: base + "/payments/return/pending",
			Failure: base + "/payments/return/failure",
		}
		req.AutoReturn = "approved"
		req.NotificationURL = base + "/webhooks/mercadopago"
	}

	var resp preferenceResponse
	if err := a.call(ctx, http.MethodPost, "/checkout/preferences", req, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("mercadopago returned an empty preference id")
	}

	initPoint := resp.InitPoint
	if a.cfg.Sandbox && resp.SandboxInitPoint != "" {
		initPoint = resp.SandboxInitPoint
	}

	return &payments.Preference{
		ID:        resp.ID,
		InitPoint: initPoint,
		Provider:  payments.ProviderMercadoPago,
		Sandbox:   a.cfg.Sandbox,
	}, nil
}

type paymentResponse struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	StatusDetail      string `json:"status_detail"`
	ExternalReference string `json:"external_reference"`
}

// PaymentStatus pulls a payment's current state, used when the push
// notification is delayed or lost.
func (a *Adapter) PaymentStatus(ctx context.Context, paymentID string) (*payments.StatusResult, error) {
	var resp paymentResponse
	if err := a.call(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, &resp); err != nil {
		return nil, err
	}

	result := &payments.StatusResult{
		ExternalID:   fmt.Sprintf("%d", resp.ID),
		Status:       mapStatus(resp.Status),
		StatusDetail: string(mapStatusDetail(resp.StatusDetail)),
	}
	if ref, err := payments.DecodeExternalReference(resp.ExternalReference); err == nil {
		result.UserID = ref.UserID
		result.CreditsToAdd = ref.Credits
		result.PackageID = ref.PackageID
	}
	return result, nil
}

func (a *Adapter) call(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal mercadopago request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build mercadopago request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("mercadopago request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("mercadopago %s %s returned %s", method, path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode mercadopago response: %w", err)
	}
	return nil
}

// mapStatus translates MercadoPago's status vocabulary into the canonical one.
func mapStatus(status string) payments.CanonicalStatus {
	switch status {
	case "approved":
		return payments.StatusApproved
	case "pending", "in_process", "in_mediation", "authorized":
		return payments.StatusPending
	case "rejected":
		return payments.StatusRejected
	default: // cancelled, refunded, charged_back
		return payments.StatusCancelled
	}
}

// mapStatusDetail folds MercadoPago's cc_rejected_* codes into the stable
// decline vocabulary.
func mapStatusDetail(detail string) payments.DeclineCode {
	switch detail {
	case "cc_rejected_insufficient_amount":
		return payments.DeclineInsufficientFunds
	case "cc_rejected_bad_filled_security_code":
		return payments.DeclineBadCVV
	case "cc_rejected_bad_filled_card_number", "cc_rejected_bad_filled_other":
		return payments.DeclineBadCard
	case "cc_rejected_bad_filled_date", "cc_rejected_card_expired":
		return payments.DeclineExpiredCard
	case "cc_rejected_high_risk":
		return payments.DeclineHighRisk
	case "cc_rejected_call_for_authorize", "cc_rejected_card_disabled":
		return payments.DeclineCallIssuer
	case "", "accredited":
		return ""
	default:
		return payments.DeclineOther
	}
}

func publicBase(base string) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return ""
	}
	return strings.TrimRight(base, "/")
}
