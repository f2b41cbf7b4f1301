package domain

import (
	"time"

	"gorm.io/datatypes"
)

type DocumentType struct {
	ID              int64             `json:"id" gorm:"primaryKey"`
	Code            string            `json:"code" gorm:"type:text;not null;uniqueIndex:ux_document_types_code"`
	Name            string            `json:"name" gorm:"type:text;not null"`
	NameID          string            `json:"name_id" gorm:"column:name_id;type:text;not null"`
	Category        string            `json:"category" gorm:"type:text;not null;index:ix_document_types_category"`
	CreditsRequired int64             `json:"credits_required" gorm:"not null;default:1"`
	IsActive        bool              `json:"is_active" gorm:"not null;default:true"`
	IsPopular       bool              `json:"is_popular" gorm:"not null;default:false"`
	UsageCount      int64             `json:"usage_count" gorm:"not null;default:0"`
	LastUsedAt      *time.Time        `json:"last_used_at,omitempty"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt       time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DocumentType) TableName() string { return "document_types" }
