package domain

import (
	"time"

	"gorm.io/datatypes"
)

type TransactionType string

const (
	TxPurchase TransactionType = "purchase"
	TxUsage    TransactionType = "usage"
	TxRefund   TransactionType = "refund"
	TxGrant    TransactionType = "grant"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// CreditBalance is the single mutable row per scope. All mutations go
// through the ledger service; current_credits never goes negative.
type CreditBalance struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	ScopeType      string    `json:"scope_type" gorm:"type:text;not null;uniqueIndex:ux_credit_balances_scope,priority:1"`
	ScopeID        int64     `json:"scope_id" gorm:"not null;uniqueIndex:ux_credit_balances_scope,priority:2"`
	CurrentCredits int64     `json:"current_credits" gorm:"not null;default:0"`
	BonusCredits   int64     `json:"bonus_credits" gorm:"not null;default:0"`
	UsedCredits    int64     `json:"used_credits" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CreditBalance) TableName() string { return "credit_balances" }

// CreditTransaction is the append-mostly ledger. Only purchases are ever
// pending; usage, refund and grant rows are written completed.
type CreditTransaction struct {
	ID            int64             `json:"id" gorm:"primaryKey"`
	ScopeType     string            `json:"scope_type" gorm:"type:text;not null;index:ix_credit_tx_scope,priority:1"`
	ScopeID       int64             `json:"scope_id" gorm:"not null;index:ix_credit_tx_scope,priority:2"`
	Type          string            `json:"type" gorm:"type:text;not null"`
	Status        string            `json:"status" gorm:"type:text;not null"`
	Credits       int64             `json:"credits" gorm:"not null"`
	BonusCredits  int64             `json:"bonus_credits" gorm:"not null;default:0"`
	AmountCents   int64             `json:"amount_cents" gorm:"not null;default:0"`
	Currency      string            `json:"currency" gorm:"type:text;not null;default:'IDR'"`
	Reason        string            `json:"reason" gorm:"type:text;not null;default:''"`
	Reference     *string           `json:"reference,omitempty" gorm:"type:text"`
	PackageID     *int64            `json:"package_id,omitempty"`
	ReferenceType *string           `json:"reference_type,omitempty" gorm:"type:text"`
	ReferenceID   *int64            `json:"reference_id,omitempty"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null;index:ix_credit_tx_created"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

func (CreditTransaction) TableName() string { return "credit_transactions" }
