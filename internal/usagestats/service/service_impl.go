package service

import (
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	catalogdomain "github.com/edukita/kertas/internal/catalog/domain"
	"github.com/edukita/kertas/internal/clock"
	"github.com/edukita/kertas/internal/usagestats/domain"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	CatalogRepo catalogdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	catalogRepo catalogdomain.Repository
	genID       *snowflake.Node
	clock       clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("usagestats.service"),
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		genID:       p.GenID,
		clock:       p.Clock,
	}
}

func (s *Service) RecordUsage(ctx context.Context, req domain.RecordRequest) (*domain.RecordResponse, error) {
	if req.SchoolID == 0 {
		return nil, domain.ErrInvalidSchool
	}
	if req.DocumentTypeID == 0 {
		return nil, domain.ErrInvalidDocumentType
	}

	now := s.clock.Now()
	doc := &domain.GeneratedDocument{
		ID:             s.genID.Generate().Int64(),
		SchoolID:       req.SchoolID,
		UserID:         req.UserID,
		DocumentTypeID: req.DocumentTypeID,
		CreditsCharged: req.CreditsCharged,
		GeneratedAt:    now,
	}
	if req.Metadata != nil {
		doc.Metadata = datatypes.JSONMap(req.Metadata)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertGenerated(ctx, tx, doc); err != nil {
			return err
		}

		affected, err := s.catalogRepo.IncrementUsage(ctx, tx, req.DocumentTypeID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrInvalidDocumentType
		}

		return s.repo.BumpStat(ctx, tx, &domain.DocumentStat{
			ID:              s.genID.Generate().Int64(),
			DocumentTypeID:  req.DocumentTypeID,
			SchoolID:        req.SchoolID,
			TotalGenerated:  1,
			LastGeneratedAt: now,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	})
	if err != nil {
		return nil, err
	}

	return &domain.RecordResponse{
		DocumentID:  strconv.FormatInt(doc.ID, 10),
		GeneratedAt: now,
	}, nil
}

func (s *Service) Stats(ctx context.Context, schoolID int64) (*domain.StatsResponse, error) {
	if schoolID == 0 {
		return nil, domain.ErrInvalidSchool
	}

	byType, err := s.repo.StatsBySchool(ctx, s.db, schoolID)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.repo.StatsByCategory(ctx, s.db, schoolID)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, row := range byType {
		total += row.TotalGenerated
	}

	monthStart := startOfMonth(s.clock.Now())
	thisMonth, err := s.repo.CountGenerated(ctx, s.db, schoolID, &monthStart)
	if err != nil {
		return nil, err
	}

	return &domain.StatsResponse{
		TotalGenerated: total,
		ThisMonth:      thisMonth,
		ByDocumentType: byType,
		ByCategory:     byCategory,
	}, nil
}

func (s *Service) RebuildStats(ctx context.Context, schoolID int64) (*domain.RebuildResult, error) {
	if schoolID == 0 {
		return nil, domain.ErrInvalidSchool
	}

	groups, err := s.repo.AggregateLog(ctx, s.db, schoolID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteStatsBySchool(ctx, tx, schoolID); err != nil {
			return err
		}
		for _, group := range groups {
			stat := &domain.DocumentStat{
				ID:              s.genID.Generate().Int64(),
				DocumentTypeID:  group.DocumentTypeID,
				SchoolID:        schoolID,
				TotalGenerated:  group.TotalGenerated,
				LastGeneratedAt: group.LastGeneratedAt,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := s.repo.InsertStat(ctx, tx, stat); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stats rebuilt",
		zap.Int64("school_id", schoolID),
		zap.Int("document_types", len(groups)),
	)
	return &domain.RebuildResult{DocumentTypes: len(groups)}, nil
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
