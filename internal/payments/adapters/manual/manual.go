package manual

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	paymentdomain "github.com/edukita/kertas/internal/payments/domain"
)

// Factory builds the manual adapter for self-hosted installs without a
// payment gateway: an operator confirms transfers through the webhook
// endpoint, authenticated with the shared admin secret.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "manual"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secret, _ := readString(cfg.Config, "admin_secret")
	if strings.TrimSpace(secret) == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	return &Adapter{secret: strings.TrimSpace(secret)}, nil
}

type Adapter struct {
	secret string
}

func (a *Adapter) CreateCheckout(ctx context.Context, req paymentdomain.CheckoutRequest) (*paymentdomain.Checkout, error) {
	// Nothing to open externally; the order id doubles as the transfer
	// reference the operator quotes back.
	return &paymentdomain.Checkout{Reference: req.OrderID}, nil
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	provided := strings.TrimSpace(headers.Get("X-Admin-Secret"))
	if provided == "" {
		return paymentdomain.ErrInvalidSignature
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(a.secret)) != 1 {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

type confirmation struct {
	EventID string `json:"event_id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var note confirmation
	if err := json.Unmarshal(payload, &note); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(note.OrderID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	status := strings.ToLower(strings.TrimSpace(note.Status))
	var eventType string
	switch status {
	case "paid", "confirmed":
		eventType = paymentdomain.EventTypePaymentSucceeded
	case "failed", "rejected":
		eventType = paymentdomain.EventTypePaymentFailed
	case "expired":
		eventType = paymentdomain.EventTypePaymentExpired
	default:
		return nil, paymentdomain.ErrInvalidEvent
	}

	eventID := strings.TrimSpace(note.EventID)
	if eventID == "" {
		eventID = note.OrderID + "|" + status
	}

	return &paymentdomain.PaymentEvent{
		Provider:        "manual",
		ProviderEventID: eventID,
		Type:            eventType,
		OrderID:         strings.TrimSpace(note.OrderID),
		Currency:        "IDR",
		OccurredAt:      time.Now().UTC(),
		RawPayload:      payload,
	}, nil
}

func readString(config map[string]any, key string) (string, bool) {
	if config == nil {
		return "", false
	}
	value, ok := config[key]
	if !ok {
		return "", false
	}
	cast, ok := value.(string)
	return cast, ok
}
