package midtrans

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paymentdomain "github.com/edukita/kertas/internal/payments/domain"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "midtrans"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	serverKey, ok := readString(cfg.Config, "server_key")
	if !ok || strings.TrimSpace(serverKey) == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	snapURL, _ := readString(cfg.Config, "snap_url")
	if strings.TrimSpace(snapURL) == "" {
		snapURL = "https://app.sandbox.midtrans.com/snap/v1/transactions"
	}

	return &Adapter{
		serverKey: strings.TrimSpace(serverKey),
		snapURL:   strings.TrimSpace(snapURL),
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type Adapter struct {
	serverKey string
	snapURL   string
	client    *http.Client
}

type snapRequest struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	Callbacks *struct {
		Finish string `json:"finish,omitempty"`
	} `json:"callbacks,omitempty"`
}

type snapResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

func (a *Adapter) CreateCheckout(ctx context.Context, req paymentdomain.CheckoutRequest) (*paymentdomain.Checkout, error) {
	var body snapRequest
	body.TransactionDetails.OrderID = req.OrderID
	// Midtrans expects whole rupiah, prices are stored in cents.
	body.TransactionDetails.GrossAmount = req.AmountCents / 100
	if callback := strings.TrimSpace(req.CallbackURL); callback != "" {
		body.Callbacks = &struct {
			Finish string `json:"finish,omitempty"`
		}{Finish: callback}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.snapURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(a.serverKey+":")))

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("midtrans snap returned status %d", resp.StatusCode)
	}

	var parsed snapResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if parsed.Token == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	return &paymentdomain.Checkout{
		Reference:   parsed.Token,
		RedirectURL: parsed.RedirectURL,
	}, nil
}

type notification struct {
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	TransactionTime   string `json:"transaction_time"`
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	Currency          string `json:"currency"`
	FraudStatus       string `json:"fraud_status"`
}

// Verify checks the notification signature:
// sha512(order_id + status_code + gross_amount + server_key).
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	var note notification
	if err := json.Unmarshal(payload, &note); err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	if note.SignatureKey == "" {
		return paymentdomain.ErrInvalidSignature
	}

	sum := sha512.Sum512([]byte(note.OrderID + note.StatusCode + note.GrossAmount + a.serverKey))
	expected := hex.EncodeToString(sum[:])
	if !strings.EqualFold(expected, note.SignatureKey) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var note notification
	if err := json.Unmarshal(payload, &note); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(note.OrderID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	status := strings.ToLower(strings.TrimSpace(note.TransactionStatus))
	var eventType string
	switch status {
	case "settlement":
		eventType = paymentdomain.EventTypePaymentSucceeded
	case "capture":
		if strings.EqualFold(note.FraudStatus, "challenge") {
			return nil, paymentdomain.ErrEventIgnored
		}
		eventType = paymentdomain.EventTypePaymentSucceeded
	case "deny", "cancel", "failure":
		eventType = paymentdomain.EventTypePaymentFailed
	case "expire":
		eventType = paymentdomain.EventTypePaymentExpired
	case "pending":
		return nil, paymentdomain.ErrEventIgnored
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	occurredAt := time.Now().UTC()
	if note.TransactionTime != "" {
		if parsed, err := time.Parse("2006-01-02 15:04:05", note.TransactionTime); err == nil {
			occurredAt = parsed.UTC()
		}
	}

	amountCents := int64(0)
	if note.GrossAmount != "" {
		if gross, err := strconv.ParseFloat(note.GrossAmount, 64); err == nil {
			amountCents = int64(gross * 100)
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(note.Currency))
	if currency == "" {
		currency = "IDR"
	}

	// Midtrans retries the same notification; order id plus status makes
	// replays collapse onto one event row.
	eventID := note.OrderID + "|" + status

	return &paymentdomain.PaymentEvent{
		Provider:        "midtrans",
		ProviderEventID: eventID,
		Type:            eventType,
		OrderID:         note.OrderID,
		AmountCents:     amountCents,
		Currency:        currency,
		OccurredAt:      occurredAt,
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
