package repository

import (
	"context"
	"time"

	"github.com/edukita/kertas/internal/usagestats/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertGenerated(ctx context.Context, db *gorm.DB, doc *domain.GeneratedDocument) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO generated_documents (
			id, school_id, user_id, document_type_id, credits_charged,
			generated_at, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.SchoolID,
		doc.UserID,
		doc.DocumentTypeID,
		doc.CreditsCharged,
		doc.GeneratedAt,
		doc.Metadata,
	).Error
}

func (r *repo) BumpStat(ctx context.Context, db *gorm.DB, stat *domain.DocumentStat) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO document_stats (
			id, document_type_id, school_id, total_generated,
			last_generated_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (document_type_id, school_id)
		DO UPDATE SET
			total_generated = document_stats.total_generated + 1,
			last_generated_at = EXCLUDED.last_generated_at,
			updated_at = EXCLUDED.updated_at`,
		stat.ID,
		stat.DocumentTypeID,
		stat.SchoolID,
		stat.TotalGenerated,
		stat.LastGeneratedAt,
		stat.CreatedAt,
		stat.UpdatedAt,
	).Error
}

func (r *repo) InsertStat(ctx context.Context, db *gorm.DB, stat *domain.DocumentStat) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO document_stats (
			id, document_type_id, school_id, total_generated,
			last_generated_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stat.ID,
		stat.DocumentTypeID,
		stat.SchoolID,
		stat.TotalGenerated,
		stat.LastGeneratedAt,
		stat.CreatedAt,
		stat.UpdatedAt,
	).Error
}

func (r *repo) DeleteStatsBySchool(ctx context.Context, db *gorm.DB, schoolID int64) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM document_stats WHERE school_id = ?`,
		schoolID,
	).Error
}

func (r *repo) AggregateLog(ctx context.Context, db *gorm.DB, schoolID int64) ([]domain.StatAggregate, error) {
	var groups []domain.StatAggregate
	err := db.WithContext(ctx).Raw(
		`SELECT document_type_id,
			COUNT(*) AS total_generated,
			MAX(generated_at) AS last_generated_at
		 FROM generated_documents
		 WHERE school_id = ?
		 GROUP BY document_type_id`,
		schoolID,
	).Scan(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repo) StatsBySchool(ctx context.Context, db *gorm.DB, schoolID int64) ([]domain.StatRow, error) {
	var rows []domain.StatRow
	err := db.WithContext(ctx).Raw(
		`SELECT ds.document_type_id,
			dt.code, dt.name, dt.category,
			ds.total_generated, ds.last_generated_at
		 FROM document_stats ds
		 JOIN document_types dt ON dt.id = ds.document_type_id
		 WHERE ds.school_id = ?
		 ORDER BY ds.total_generated DESC, dt.name ASC`,
		schoolID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) StatsByCategory(ctx context.Context, db *gorm.DB, schoolID int64) ([]domain.CategoryRow, error) {
	var rows []domain.CategoryRow
	err := db.WithContext(ctx).Raw(
		`SELECT dt.category,
			SUM(ds.total_generated) AS total_generated
		 FROM document_stats ds
		 JOIN document_types dt ON dt.id = ds.document_type_id
		 WHERE ds.school_id = ?
		 GROUP BY dt.category
		 ORDER BY total_generated DESC`,
		schoolID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CountGenerated(ctx context.Context, db *gorm.DB, schoolID int64, since *time.Time) (int64, error) {
	var count int64
	stmt := db.WithContext(ctx).Model(&domain.GeneratedDocument{}).
		Where("school_id = ?", schoolID)
	if since != nil {
		stmt = stmt.Where("generated_at >= ?", since.UTC())
	}
	if err := stmt.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
