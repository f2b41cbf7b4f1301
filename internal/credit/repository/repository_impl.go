package repository

import (
	"context"
	"time"

	"github.com/edukita/kertas/internal/credit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindBalance(ctx context.Context, db *gorm.DB, scopeType string, scopeID int64) (*domain.CreditBalance, error) {
	var balance domain.CreditBalance
	err := db.WithContext(ctx).Raw(
		`SELECT id, scope_type, scope_id, current_credits, bonus_credits,
			used_credits, created_at, updated_at
		 FROM credit_balances WHERE scope_type = ? AND scope_id = ?`,
		scopeType,
		scopeID,
	).Scan(&balance).Error
	if err != nil {
		return nil, err
	}
	if balance.ID == 0 {
		return nil, nil
	}
	return &balance, nil
}

func (r *repo) AddToBalance(ctx context.Context, db *gorm.DB, balance *domain.CreditBalance) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_balances (
			id, scope_type, scope_id, current_credits, bonus_credits,
			used_credits, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (scope_type, scope_id)
		DO UPDATE SET
			current_credits = credit_balances.current_credits + EXCLUDED.current_credits,
			bonus_credits = credit_balances.bonus_credits + EXCLUDED.bonus_credits,
			updated_at = EXCLUDED.updated_at`,
		balance.ID,
		balance.ScopeType,
		balance.ScopeID,
		balance.CurrentCredits,
		balance.BonusCredits,
		balance.UsedCredits,
		balance.CreatedAt,
		balance.UpdatedAt,
	).Error
}

// DebitBalance is the single conditional statement that makes concurrent
// debits safe: the WHERE clause rejects any decrement that would go negative.
func (r *repo) DebitBalance(ctx context.Context, db *gorm.DB, scopeType string, scopeID, credits int64, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE credit_balances
		 SET current_credits = current_credits - ?,
		     used_credits = used_credits + ?,
		     updated_at = ?
		 WHERE scope_type = ? AND scope_id = ? AND current_credits >= ?`,
		credits,
		credits,
		now,
		scopeType,
		scopeID,
		credits,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, tx *domain.CreditTransaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_transactions (
			id, scope_type, scope_id, type, status, credits, bonus_credits,
			amount_cents, currency, reason, reference, package_id,
			reference_type, reference_id, metadata, created_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.ScopeType,
		tx.ScopeID,
		tx.Type,
		tx.Status,
		tx.Credits,
		tx.BonusCredits,
		tx.AmountCents,
		tx.Currency,
		tx.Reason,
		tx.Reference,
		tx.PackageID,
		tx.ReferenceType,
		tx.ReferenceID,
		tx.Metadata,
		tx.CreatedAt,
		tx.CompletedAt,
	).Error
}

func (r *repo) FindTransaction(ctx context.Context, db *gorm.DB, id int64) (*domain.CreditTransaction, error) {
	var tx domain.CreditTransaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, scope_type, scope_id, type, status, credits, bonus_credits,
			amount_cents, currency, reason, reference, package_id,
			reference_type, reference_id, metadata, created_at, completed_at
		 FROM credit_transactions WHERE id = ?`,
		id,
	).Scan(&tx).Error
	if err != nil {
		return nil, err
	}
	if tx.ID == 0 {
		return nil, nil
	}
	return &tx, nil
}

// MarkTransaction only moves rows out of pending. A row already terminal is
// left untouched and reported through RowsAffected.
func (r *repo) MarkTransaction(ctx context.Context, db *gorm.DB, id int64, status string, completedAt time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE credit_transactions
		 SET status = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		status,
		completedAt,
		id,
		string(domain.StatusPending),
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, scopeType string, scopeID int64, limit int) ([]domain.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []domain.CreditTransaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, scope_type, scope_id, type, status, credits, bonus_credits,
			amount_cents, currency, reason, reference, package_id,
			reference_type, reference_id, metadata, created_at, completed_at
		 FROM credit_transactions
		 WHERE scope_type = ? AND scope_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		scopeType,
		scopeID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
