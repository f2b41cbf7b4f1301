package repository

import (
	"context"
	"time"

	"github.com/edukita/kertas/internal/payments/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const packageColumns = `id, code, name, credits, bonus_credits, price_cents,
	currency, active, created_at, updated_at`

func (r *repo) FindPackage(ctx context.Context, db *gorm.DB, id int64) (*domain.CreditPackage, error) {
	var pkg domain.CreditPackage
	err := db.WithContext(ctx).Raw(
		`SELECT `+packageColumns+` FROM credit_packages WHERE id = ?`,
		id,
	).Scan(&pkg).Error
	if err != nil {
		return nil, err
	}
	if pkg.ID == 0 {
		return nil, nil
	}
	return &pkg, nil
}

func (r *repo) ListPackages(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.CreditPackage, error) {
	var items []domain.CreditPackage
	stmt := db.WithContext(ctx).Model(&domain.CreditPackage{})
	if activeOnly {
		stmt = stmt.Where("active = ?", true)
	}
	if err := stmt.Order("price_cents ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertPackage(ctx context.Context, db *gorm.DB, pkg *domain.CreditPackage) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_packages (
			id, code, name, credits, bonus_credits, price_cents,
			currency, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pkg.ID,
		pkg.Code,
		pkg.Name,
		pkg.Credits,
		pkg.BonusCredits,
		pkg.PriceCents,
		pkg.Currency,
		pkg.Active,
		pkg.CreatedAt,
		pkg.UpdatedAt,
	).Error
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.EventRecord) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payment_events (
			id, provider, provider_event_id, event_type, order_id,
			amount_cents, currency, payload, received_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_event_id) DO NOTHING`,
		event.ID,
		event.Provider,
		event.ProviderEventID,
		event.EventType,
		event.OrderID,
		event.AmountCents,
		event.Currency,
		event.Payload,
		event.ReceivedAt,
		event.ProcessedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*domain.EventRecord, error) {
	var item domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, provider_event_id, event_type, order_id,
			amount_cents, currency, payload, received_at, processed_at
		 FROM payment_events
		 WHERE provider = ? AND provider_event_id = ?
		 LIMIT 1`,
		provider,
		providerEventID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id int64, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events SET processed_at = ? WHERE id = ? AND processed_at IS NULL`,
		processedAt,
		id,
	).Error
}
