package domain

import (
	"context"
	"errors"
	"time"
)

type Scope struct {
	Type string `json:"scope_type"`
	ID   int64  `json:"scope_id"`
}

const ScopeSchool = "school"

type Service interface {
	// GetBalance returns a zero-valued balance when no row exists yet.
	GetBalance(ctx context.Context, scope Scope) (*BalanceResponse, error)
	// ReserveAndDebit atomically checks and decrements the balance. On
	// success a completed usage transaction is written in the same database
	// transaction; on shortfall nothing is written.
	ReserveAndDebit(ctx context.Context, req DebitRequest) (*TransactionResponse, error)
	// Credit deposits credits with a completed transaction row.
	Credit(ctx context.Context, req CreditRequest) (*TransactionResponse, error)
	// CreatePendingPurchase opens a purchase transaction awaiting gateway
	// confirmation. The balance is untouched until MarkTransaction completes it.
	CreatePendingPurchase(ctx context.Context, req PurchaseRequest) (*TransactionResponse, error)
	// MarkTransaction moves pending to a terminal status. Completing a
	// purchase deposits its credits exactly once; the guarded update decides
	// the winner of a concurrent race and the loser gets ErrTransactionFinal.
	MarkTransaction(ctx context.Context, id int64, status TransactionStatus) (*TransactionResponse, error)
	// Refund compensates a debit that could not be fulfilled.
	Refund(ctx context.Context, req RefundRequest) (*TransactionResponse, error)
	ListTransactions(ctx context.Context, scope Scope, limit int) ([]TransactionResponse, error)
}

type DebitRequest struct {
	Scope         Scope
	Credits       int64
	Reason        string
	ReferenceType string
	ReferenceID   int64
}

type CreditRequest struct {
	Scope   Scope
	Credits int64
	Bonus   int64
	Type    TransactionType
	Reason  string
}

type PurchaseRequest struct {
	Scope       Scope
	Credits     int64
	Bonus       int64
	AmountCents int64
	Currency    string
	PackageID   int64
	Reference   string
}

type RefundRequest struct {
	Scope         Scope
	Credits       int64
	Reason        string
	ReferenceType string
	ReferenceID   int64
}

type BalanceResponse struct {
	ScopeType      string `json:"scope_type"`
	ScopeID        string `json:"scope_id"`
	CurrentCredits int64  `json:"current_credits"`
	BonusCredits   int64  `json:"bonus_credits"`
	UsedCredits    int64  `json:"used_credits"`
	LowBalance     bool   `json:"low_balance"`
}

type TransactionResponse struct {
	ID          string     `json:"id"`
	ScopeType   string     `json:"scope_type"`
	ScopeID     string     `json:"scope_id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Credits     int64      `json:"credits"`
	Bonus       int64      `json:"bonus_credits,omitempty"`
	AmountCents int64      `json:"amount_cents,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Reference   *string    `json:"reference,omitempty"`
	PackageID   *string    `json:"package_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

var (
	ErrInvalidScope        = errors.New("invalid_scope")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInsufficientCredits = errors.New("insufficient_credits")
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrTransactionFinal    = errors.New("transaction_final")
)
