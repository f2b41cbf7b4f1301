package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Upsert writes the record, replacing any existing row for the same
	// (scope_type, scope_id, document_type_id).
	Upsert(ctx context.Context, db *gorm.DB, record *PermissionRecord) error
	FindByScope(ctx context.Context, db *gorm.DB, scopeType string, scopeID, documentTypeID int64) (*PermissionRecord, error)
	ListByScope(ctx context.Context, db *gorm.DB, scopeType string, scopeID int64) ([]PermissionRecord, error)
}
