package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindPackage(ctx context.Context, db *gorm.DB, id int64) (*CreditPackage, error)
	ListPackages(ctx context.Context, db *gorm.DB, activeOnly bool) ([]CreditPackage, error)
	InsertPackage(ctx context.Context, db *gorm.DB, pkg *CreditPackage) error

	// InsertEvent reports false when the (provider, provider_event_id) pair
	// already exists.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id int64, processedAt time.Time) error
}
