// Package stripe is a thin client over the Stripe REST API. Only the
// endpoints the subscription lifecycle needs are covered.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dinehq/dinehq/internal/billing/domain"
	"github.com/dinehq/dinehq/internal/config"
)

const defaultBaseURL = "https://api.stripe.com"

type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	baseURL := strings.TrimRight(cfg.Stripe.APIBaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		secretKey: cfg.Stripe.SecretKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log.Named("billing.stripe"),
	}
}

// CreateCustomer implements domain.Provider.
func (c *Client) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (*domain.Customer, error) {
	form := url.Values{}
	form.Set("email", email)
	if name != "" {
		form.Set("name", name)
	}
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var out stripeCustomer
	if err := c.do(ctx, http.MethodPost, "/v1/customers", form, &out); err != nil {
		return nil, err
	}
	return &domain.Customer{ID: out.ID, Email: out.Email, Name: out.Name}, nil
}

// CreateCheckoutSession implements domain.Provider.
func (c *Client) CreateCheckoutSession(ctx context.Context, req domain.CheckoutSessionRequest) (*domain.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("customer", req.CustomerID)
	form.Set("line_items[0][price]", req.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if req.TrialDays > 0 {
		form.Set("subscription_data[trial_period_days]", strconv.Itoa(req.TrialDays))
	}
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("subscription_data[metadata][%s]", k), v)
	}

	var out stripeCheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	return &domain.CheckoutSession{ID: out.ID, URL: out.URL}, nil
}

// GetSubscription implements domain.Provider.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*domain.Subscription, error) {
	var out stripeSubscription
	if err := c.do(ctx, http.MethodGet, "/v1/subscriptions/"+url.PathEscape(subscriptionID), nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// UpdateSubscription implements domain.Provider.
func (c *Client) UpdateSubscription(ctx context.Context, subscriptionID string, params domain.UpdateParams) (*domain.Subscription, error) {
	form := url.Values{}
	if params.PriceID != "" {
		form.Set("items[0][price]", params.PriceID)
		form.Set("proration_behavior", "create_prorations")
	}
	if params.CancelAtPeriodEnd != nil {
		form.Set("cancel_at_period_end", strconv.FormatBool(*params.CancelAtPeriodEnd))
	}

	var out stripeSubscription
	if err := c.do(ctx, http.MethodPost, "/v1/subscriptions/"+url.PathEscape(subscriptionID), form, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// CancelSubscription implements domain.Provider. Immediate cancellation
// deletes the provider subscription; deferred cancellation flips
// cancel_at_period_end and keeps it alive until the window closes.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*domain.Subscription, error) {
	if atPeriodEnd {
		flag := true
		return c.UpdateSubscription(ctx, subscriptionID, domain.UpdateParams{CancelAtPeriodEnd: &flag})
	}

	var out stripeSubscription
	if err := c.do(ctx, http.MethodDelete, "/v1/subscriptions/"+url.PathEscape(subscriptionID), nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr stripeErrorEnvelope
		if jsonErr := json.Unmarshal(payload, &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
			c.log.Warn("stripe api error",
				zap.Int("status", resp.StatusCode),
				zap.String("path", path),
				zap.String("message", apiErr.Error.Message),
			)
			return fmt.Errorf("%w: %s", domain.ErrProviderFailure, apiErr.Error.Message)
		}
		return fmt.Errorf("%w: status %d", domain.ErrProviderFailure, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	return nil
}

type stripeCustomer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type stripeCheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeSubscriptionItem struct {
	Price struct {
		ID string `json:"id"`
	} `json:"price"`
}

type stripeSubscription struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CanceledAt         int64             `json:"canceled_at"`
	TrialStart         int64             `json:"trial_start"`
	TrialEnd           int64             `json:"trial_end"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []stripeSubscriptionItem `json:"data"`
	} `json:"items"`
}

type stripeErrorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s stripeSubscription) toDomain() *domain.Subscription {
	sub := &domain.Subscription{
		ID:                 s.ID,
		CustomerID:         s.Customer,
		State:              domain.SubscriptionState(s.Status),
		CurrentPeriodStart: time.Unix(s.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(s.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		Metadata:           s.Metadata,
	}
	if len(s.Items.Data) > 0 {
		sub.PriceID = s.Items.Data[0].Price.ID
	}
	if s.CanceledAt > 0 {
		t := time.Unix(s.CanceledAt, 0).UTC()
		sub.CanceledAt = &t
	}
	if s.TrialStart > 0 {
		t := time.Unix(s.TrialStart, 0).UTC()
		sub.TrialStart = &t
	}
	if s.TrialEnd > 0 {
		t := time.Unix(s.TrialEnd, 0).UTC()
		sub.TrialEnd = &t
	}
	return sub
}
