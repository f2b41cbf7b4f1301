package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

type Service interface {
	ListPackages(ctx context.Context) ([]PackageResponse, error)
	// StartPurchase opens a pending ledger transaction and asks the
	// configured gateway for a checkout reference.
	StartPurchase(ctx context.Context, req PurchaseRequest) (*PurchaseResponse, error)
	// ProcessEvent verifies, dedupes and settles one gateway notification.
	// Replays of a processed event return ErrEventAlreadyProcessed.
	ProcessEvent(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

type PurchaseRequest struct {
	SchoolID  int64
	PackageID int64 `json:"package_id,string"`
}

type PurchaseResponse struct {
	TransactionID string `json:"transaction_id"`
	Reference     string `json:"reference"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	Credits       int64  `json:"credits"`
	BonusCredits  int64  `json:"bonus_credits"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
}

type PackageResponse struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Credits      int64     `json:"credits"`
	BonusCredits int64     `json:"bonus_credits"`
	PriceCents   int64     `json:"price_cents"`
	Currency     string    `json:"currency"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

var (
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidConfig         = errors.New("invalid_provider_config")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrPackageNotFound       = errors.New("package_not_found")
	ErrInvalidOrder          = errors.New("invalid_order")
)
