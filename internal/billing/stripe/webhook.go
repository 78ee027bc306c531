package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dinehq/dinehq/internal/billing/domain"
	"github.com/dinehq/dinehq/internal/config"
)

// WebhookVerifier validates Stripe-Signature headers and normalizes events.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(cfg config.Config) *WebhookVerifier {
	return &WebhookVerifier{secret: cfg.Stripe.WebhookSecret}
}

// Verify implements domain.WebhookVerifier.
func (v *WebhookVerifier) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(v.secret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

// Parse implements domain.WebhookVerifier. Unhandled event types return
// ErrEventIgnored so the caller can acknowledge without acting.
func (v *WebhookVerifier) Parse(ctx context.Context, payload []byte) (*domain.Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	var eventType domain.EventType
	switch strings.TrimSpace(event.Type) {
	case "checkout.session.completed":
		eventType = domain.EventCheckoutCompleted
	case "customer.subscription.created", "customer.subscription.updated":
		eventType = domain.EventSubscriptionUpdated
	case "customer.subscription.deleted":
		eventType = domain.EventSubscriptionDeleted
	case "invoice.payment_failed":
		eventType = domain.EventPaymentFailed
	default:
		return nil, domain.ErrEventIgnored
	}

	var object stripeEventObject
	if err := json.Unmarshal(event.Data.Object, &object); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	out := &domain.Event{
		ID:         event.ID,
		Type:       eventType,
		CustomerID: object.Customer,
		Metadata:   object.Metadata,
		RawPayload: payload,
	}

	switch eventType {
	case domain.EventCheckoutCompleted, domain.EventPaymentFailed:
		out.SubscriptionID = object.Subscription
	default:
		out.SubscriptionID = object.ID
	}
	if strings.TrimSpace(out.SubscriptionID) == "" {
		return nil, domain.ErrInvalidEvent
	}
	return out, nil
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type stripeEventObject struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, domain.ErrInvalidSignature
	}
	return timestamp, signatures, nil
}
