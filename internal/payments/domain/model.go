package domain

import (
	"time"

	"gorm.io/datatypes"
)

// CreditPackage is a purchasable bundle of credits.
type CreditPackage struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Code         string    `json:"code" gorm:"type:text;not null;uniqueIndex:ux_credit_packages_code"`
	Name         string    `json:"name" gorm:"type:text;not null"`
	Credits      int64     `json:"credits" gorm:"not null"`
	BonusCredits int64     `json:"bonus_credits" gorm:"not null;default:0"`
	PriceCents   int64     `json:"price_cents" gorm:"not null"`
	Currency     string    `json:"currency" gorm:"type:text;not null;default:'IDR'"`
	Active       bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CreditPackage) TableName() string { return "credit_packages" }

// EventRecord deduplicates gateway notifications. The unique
// (provider, provider_event_id) pair makes replays insert-or-skip.
type EventRecord struct {
	ID              int64          `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider,priority:1"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider,priority:2"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	OrderID         string         `json:"order_id" gorm:"type:text;not null;index"`
	AmountCents     int64          `json:"amount_cents" gorm:"not null;default:0"`
	Currency        string         `json:"currency" gorm:"type:text;not null;default:'IDR'"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

const (
	EventTypePaymentSucceeded = "payment_succeeded"
	EventTypePaymentFailed    = "payment_failed"
	EventTypePaymentExpired   = "payment_expired"
)

// PaymentEvent is the canonical gateway event parsed by adapters. OrderID
// carries the ledger transaction id the purchase opened.
type PaymentEvent struct {
	Provider        string
	ProviderEventID string
	Type            string
	OrderID         string
	AmountCents     int64
	Currency        string
	OccurredAt      time.Time
	RawPayload      []byte
}
