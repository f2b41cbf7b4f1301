package repository

import (
	"context"

	"github.com/edukita/kertas/internal/permission/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, record *domain.PermissionRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO document_permissions (
			id, scope_type, scope_id, document_type_id, is_allowed,
			credits_per_use, granted_at, revoked_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (scope_type, scope_id, document_type_id)
		DO UPDATE SET is_allowed = EXCLUDED.is_allowed,
			credits_per_use = EXCLUDED.credits_per_use,
			granted_at = EXCLUDED.granted_at,
			revoked_at = EXCLUDED.revoked_at,
			updated_at = EXCLUDED.updated_at`,
		record.ID,
		record.ScopeType,
		record.ScopeID,
		record.DocumentTypeID,
		record.IsAllowed,
		record.CreditsPerUse,
		record.GrantedAt,
		record.RevokedAt,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) FindByScope(ctx context.Context, db *gorm.DB, scopeType string, scopeID, documentTypeID int64) (*domain.PermissionRecord, error) {
	var record domain.PermissionRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, scope_type, scope_id, document_type_id, is_allowed,
			credits_per_use, granted_at, revoked_at, created_at, updated_at
		 FROM document_permissions
		 WHERE scope_type = ? AND scope_id = ? AND document_type_id = ?`,
		scopeType,
		scopeID,
		documentTypeID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) ListByScope(ctx context.Context, db *gorm.DB, scopeType string, scopeID int64) ([]domain.PermissionRecord, error) {
	var records []domain.PermissionRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, scope_type, scope_id, document_type_id, is_allowed,
			credits_per_use, granted_at, revoked_at, created_at, updated_at
		 FROM document_permissions
		 WHERE scope_type = ? AND scope_id = ?
		 ORDER BY document_type_id ASC`,
		scopeType,
		scopeID,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
