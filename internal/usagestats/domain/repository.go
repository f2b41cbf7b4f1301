package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// StatAggregate is one group of the usage log used by the rebuild path.
type StatAggregate struct {
	DocumentTypeID  int64
	TotalGenerated  int64
	LastGeneratedAt time.Time
}

// StatRow joins the rollup with catalog naming for read endpoints.
type StatRow struct {
	DocumentTypeID  int64     `json:"document_type_id,string"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	TotalGenerated  int64     `json:"total_generated"`
	LastGeneratedAt time.Time `json:"last_generated_at"`
}

type CategoryRow struct {
	Category       string `json:"category"`
	TotalGenerated int64  `json:"total_generated"`
}

type Repository interface {
	InsertGenerated(ctx context.Context, db *gorm.DB, doc *GeneratedDocument) error
	// BumpStat increments the rollup row, creating it on first use.
	BumpStat(ctx context.Context, db *gorm.DB, stat *DocumentStat) error
	InsertStat(ctx context.Context, db *gorm.DB, stat *DocumentStat) error
	DeleteStatsBySchool(ctx context.Context, db *gorm.DB, schoolID int64) error
	AggregateLog(ctx context.Context, db *gorm.DB, schoolID int64) ([]StatAggregate, error)
	StatsBySchool(ctx context.Context, db *gorm.DB, schoolID int64) ([]StatRow, error)
	StatsByCategory(ctx context.Context, db *gorm.DB, schoolID int64) ([]CategoryRow, error)
	CountGenerated(ctx context.Context, db *gorm.DB, schoolID int64, since *time.Time) (int64, error)
}
