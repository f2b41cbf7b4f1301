package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type ListFilter struct {
	Category        string
	Search          string
	IncludeInactive bool
}

type BulkActiveFilter struct {
	// Category narrows the statement; empty means every row.
	Category string
	Active   bool
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, dt *DocumentType) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*DocumentType, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*DocumentType, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]DocumentType, error)
	FindIDsByCategory(ctx context.Context, db *gorm.DB, category string) ([]int64, error)
	SetActive(ctx context.Context, db *gorm.DB, id int64, active bool, now time.Time) (int64, error)
	SetPopular(ctx context.Context, db *gorm.DB, id int64, popular bool, now time.Time) (int64, error)
	BulkSetActive(ctx context.Context, db *gorm.DB, filter BulkActiveFilter, now time.Time) (int64, error)
	IncrementUsage(ctx context.Context, db *gorm.DB, id int64, now time.Time) (int64, error)
}
