package repository

import (
	"context"

	"github.com/edukita/kertas/internal/school/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, school *domain.School) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO schools (id, name, slug, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		school.ID,
		school.Name,
		school.Slug,
		school.Active,
		school.CreatedAt,
		school.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.School, error) {
	var s domain.School
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, active, created_at, updated_at
		 FROM schools WHERE id = ?`,
		id,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.School, error) {
	var s domain.School
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, active, created_at, updated_at
		 FROM schools WHERE slug = ?`,
		slug,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.School, error) {
	var items []domain.School
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, active, created_at, updated_at
		 FROM schools ORDER BY created_at ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
