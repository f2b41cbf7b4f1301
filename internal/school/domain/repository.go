package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, school *School) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*School, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*School, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]School, error)
}
