package repository

import (
	"context"
	"strings"
	"time"

	"github.com/edukita/kertas/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const documentTypeColumns = `id, code, name, name_id, category, credits_required,
	is_active, is_popular, usage_count, last_used_at, metadata, created_at, updated_at`

func (r *repo) Create(ctx context.Context, db *gorm.DB, dt *domain.DocumentType) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO document_types (id, code, name, name_id, category, credits_required,
		   is_active, is_popular, usage_count, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dt.ID,
		dt.Code,
		dt.Name,
		dt.NameID,
		dt.Category,
		dt.CreditsRequired,
		dt.IsActive,
		dt.IsPopular,
		dt.UsageCount,
		dt.Metadata,
		dt.CreatedAt,
		dt.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.DocumentType, error) {
	var dt domain.DocumentType
	err := db.WithContext(ctx).Raw(
		`SELECT `+documentTypeColumns+` FROM document_types WHERE id = ?`,
		id,
	).Scan(&dt).Error
	if err != nil {
		return nil, err
	}
	if dt.ID == 0 {
		return nil, nil
	}
	return &dt, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.DocumentType, error) {
	var dt domain.DocumentType
	err := db.WithContext(ctx).Raw(
		`SELECT `+documentTypeColumns+` FROM document_types WHERE code = ?`,
		code,
	).Scan(&dt).Error
	if err != nil {
		return nil, err
	}
	if dt.ID == 0 {
		return nil, nil
	}
	return &dt, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.DocumentType, error) {
	var items []domain.DocumentType
	stmt := db.WithContext(ctx).Model(&domain.DocumentType{})

	if !filter.IncludeInactive {
		stmt = stmt.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where("LOWER(name) LIKE ? OR LOWER(name_id) LIKE ? OR LOWER(code) LIKE ?",
			pattern, pattern, pattern)
	}

	err := stmt.Order("is_popular DESC, usage_count DESC, name ASC").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindIDsByCategory(ctx context.Context, db *gorm.DB, category string) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM document_types WHERE category = ? AND is_active = ? ORDER BY id ASC`,
		category, true,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, id int64, active bool, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE document_types SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, now, id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) SetPopular(ctx context.Context, db *gorm.DB, id int64, popular bool, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE document_types SET is_popular = ?, updated_at = ? WHERE id = ?`,
		popular, now, id,
	)
	return res.RowsAffected, res.Error
}

// BulkSetActive flips all matching rows in a single statement so readers never
// observe a partially toggled category.
func (r *repo) BulkSetActive(ctx context.Context, db *gorm.DB, filter domain.BulkActiveFilter, now time.Time) (int64, error) {
	if filter.Category != "" {
		res := db.WithContext(ctx).Exec(
			`UPDATE document_types SET is_active = ?, updated_at = ? WHERE category = ?`,
			filter.Active, now, filter.Category,
		)
		return res.RowsAffected, res.Error
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE document_types SET is_active = ?, updated_at = ?`,
		filter.Active, now,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) IncrementUsage(ctx context.Context, db *gorm.DB, id int64, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE document_types
		 SET usage_count = usage_count + 1, last_used_at = ?, updated_at = ?
		 WHERE id = ?`,
		now, now, id,
	)
	return res.RowsAffected, res.Error
}
