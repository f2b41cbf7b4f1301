package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindBalance(ctx context.Context, db *gorm.DB, scopeType string, scopeID int64) (*CreditBalance, error)
	// AddToBalance inserts the row or additively bumps an existing one.
	AddToBalance(ctx context.Context, db *gorm.DB, balance *CreditBalance) error
	// DebitBalance decrements conditionally; zero rows affected means the
	// balance was missing or too low.
	DebitBalance(ctx context.Context, db *gorm.DB, scopeType string, scopeID, credits int64, now time.Time) (int64, error)

	InsertTransaction(ctx context.Context, db *gorm.DB, tx *CreditTransaction) error
	FindTransaction(ctx context.Context, db *gorm.DB, id int64) (*CreditTransaction, error)
	// MarkTransaction moves a pending row to a terminal status; zero rows
	// affected means the row was already terminal (or absent).
	MarkTransaction(ctx context.Context, db *gorm.DB, id int64, status string, completedAt time.Time) (int64, error)
	ListTransactions(ctx context.Context, db *gorm.DB, scopeType string, scopeID int64, limit int) ([]CreditTransaction, error)
}
