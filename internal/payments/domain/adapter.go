package domain

import (
	"context"
	"net/http"
)

// CheckoutRequest asks the gateway to open a payment for a pending purchase.
type CheckoutRequest struct {
	OrderID     string
	AmountCents int64
	Currency    string
	Description string
	CallbackURL string
}

type Checkout struct {
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// PaymentAdapter is one gateway integration. Adapters never touch the
// ledger; they only translate between gateway wire formats and canonical
// events.
type PaymentAdapter interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
}

type AdapterConfig struct {
	Config map[string]any
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}
