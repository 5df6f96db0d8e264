package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prepally/credits-engine/pkg/payments"
)

const (
	liveBaseURL    = "https://api-m.paypal.com"
	sandboxBaseURL = "https://api-m.sandbox.paypal.com"
)

// Config holds PayPal REST credentials for one environment. The sandbox and
// live hosts are disjoint, so a mixed credential set simply fails auth.
type Config struct {
	ClientID      string
	ClientSecret  string
	WebhookID     string
	Sandbox       bool
	PublicBaseURL string
}

// Adapter implements payments.Adapter against the PayPal Orders v2 API.
type Adapter struct {
	cfg     Config
	client  *http.Client
	hostURL string // overridden in tests

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New creates a PayPal adapter with a bounded-timeout HTTP client.
func New(cfg Config) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Make sure we conform to the interface
var _ payments.Adapter = (*Adapter)(nil)

// Type identifies the processor.
func (a *Adapter) Type() payments.ProviderType { return payments.ProviderPayPal }

// Available reports whether a credential pair is configured.
func (a *Adapter) Available() bool {
	return a.cfg.ClientID != "" && a.cfg.ClientSecret != ""
}

func (a *Adapter) baseURL() string {
	if a.hostURL != "" {
		return a.hostURL
	}
	if a.cfg.Sandbox {
		return sandboxBaseURL
	}
	return liveBaseURL
}

// token returns a cached OAuth2 client-credentials token, refreshing when
// within a minute of expiry.
func (a *Adapter) token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accessToken != "" && time.Until(a.tokenExpiry) > time.Minute {
		return a.accessToken, nil
	}

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL()+"/v1/oauth2/token", form)
	if err != nil {
		return "", fmt.Errorf("failed to build paypal token request: %w", err)
	}
	req.SetBasicAuth(a.cfg.ClientID, a.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal token request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("paypal token request returned %s", resp.Status)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode paypal token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("paypal returned an empty access token")
	}

	a.accessToken = out.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return a.accessToken, nil
}

type orderRequest struct {
	Intent             string              `json:"intent"`
	PurchaseUnits      []purchaseUnit      `json:"purchase_units"`
	ApplicationContext *applicationContext `json:"application_context,omitempty"`
}

type purchaseUnit struct {
	Description string      `json:"description"`
	CustomID    string      `json:"custom_id"`
	Amount      orderAmount `json:"amount"`
}

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type applicationContext struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

// CreatePreference creates a CAPTURE-intent order. The correlation payload
// travels in custom_id, mirroring MercadoPago's external_reference.
func (a *Adapter) CreatePreference(ctx context.Context, params payments.CreatePaymentParams) (*payments.Preference, error) {
	ref := payments.ExternalReference{
		UserID:    params.UserID,
		PackageID: params.PackageID,
		Credits:   params.Credits,
		Provider:  payments.ProviderPayPal,
	}

	req := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Description: params.PackageName,
			CustomID:    ref.Encode(),
			Amount: orderAmount{
				CurrencyCode: params.Currency,
				Value:        fmt.Sprintf("%d.%02d", params.AmountLocal/100, params.AmountLocal%100),
			},
		}},
	}
	if base := publicBase(a.cfg.PublicBaseURL); base != "" {
		req.ApplicationContext = &applicationContext{
			ReturnURL: base + "/payments/return/success",
			CancelURL: base + "/payments/return/failure",
		}
	}

	var resp orderResponse
	if err := a.call(ctx, http.MethodPost, "/v2/checkout/orders", req, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("paypal returned an empty order id")
	}

	var approveURL string
	for _, link := range resp.Links {
		if link.Rel == "approve" {
			approveURL = link.Href
			break
		}
	}

	return &payments.Preference{
		ID:        resp.ID,
		InitPoint: approveURL,
		Provider:  payments.ProviderPayPal,
		Sandbox:   a.cfg.Sandbox,
	}, nil
}

type captureDetail struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	CustomID      string `json:"custom_id"`
	StatusDetails struct {
		Reason string `json:"reason"`
	} `json:"status_details"`
}

type orderDetail struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		CustomID string `json:"custom_id"`
		Payments struct {
			Captures []captureDetail `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// PaymentStatus pulls an order's current state.
func (a *Adapter) PaymentStatus(ctx context.Context, paymentID string) (*payments.StatusResult, error) {
	var resp orderDetail
	if err := a.call(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(paymentID), nil, &resp); err != nil {
		return nil, err
	}

	result := &payments.StatusResult{
		ExternalID: resp.ID,
		Status:     mapOrderStatus(resp.Status),
	}
	if len(resp.PurchaseUnits) > 0 {
		unit := resp.PurchaseUnits[0]
		customID := unit.CustomID
		if len(unit.Payments.Captures) > 0 {
			cap := unit.Payments.Captures[0]
			result.ExternalID = cap.ID
			result.StatusDetail = cap.StatusDetails.Reason
			if cap.CustomID != "" {
				customID = cap.CustomID
			}
		}
		if ref, err := payments.DecodeExternalReference(customID); err == nil {
			result.UserID = ref.UserID
			result.CreditsToAdd = ref.Credits
			result.PackageID = ref.PackageID
		}
	}
	return result, nil
}

// captureOrder captures an approved order and returns the capture.
func (a *Adapter) captureOrder(ctx context.Context, orderID string) (*orderDetail, error) {
	var resp orderDetail
	err := a.call(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", struct{}{}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *Adapter) call(ctx context.Context, method, path string, body, out any) error {
	token, err := a.token(ctx)
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal paypal request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL()+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build paypal request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("paypal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("paypal %s %s returned %s", method, path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode paypal response: %w", err)
	}
	return nil
}

func mapOrderStatus(status string) payments.CanonicalStatus {
	switch status {
	case "COMPLETED":
		return payments.StatusApproved
	case "CREATED", "SAVED", "APPROVED", "PAYER_ACTION_REQUIRED":
		return payments.StatusPending
	case "VOIDED":
		return payments.StatusCancelled
	default:
		return payments.StatusRejected
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
