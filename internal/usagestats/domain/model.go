package domain

import (
	"time"

	"gorm.io/datatypes"
)

// GeneratedDocument is the append-only usage log. Stats are derived from it
// and can always be rebuilt.
type GeneratedDocument struct {
	ID             int64             `json:"id" gorm:"primaryKey"`
	SchoolID       int64             `json:"school_id" gorm:"not null;index:ix_generated_documents_school,priority:1"`
	UserID         *int64            `json:"user_id,omitempty"`
	DocumentTypeID int64             `json:"document_type_id" gorm:"not null;index:ix_generated_documents_school,priority:2"`
	CreditsCharged int64             `json:"credits_charged" gorm:"not null;default:0"`
	GeneratedAt    time.Time         `json:"generated_at" gorm:"not null;index"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
}

func (GeneratedDocument) TableName() string { return "generated_documents" }

// DocumentStat is the per-school rollup, one row per document type.
type DocumentStat struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	DocumentTypeID  int64     `json:"document_type_id" gorm:"not null;uniqueIndex:ux_document_stats_type_school,priority:1"`
	SchoolID        int64     `json:"school_id" gorm:"not null;uniqueIndex:ux_document_stats_type_school,priority:2"`
	TotalGenerated  int64     `json:"total_generated" gorm:"not null;default:0"`
	LastGeneratedAt time.Time `json:"last_generated_at" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DocumentStat) TableName() string { return "document_stats" }
