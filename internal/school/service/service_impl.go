package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edukita/kertas/internal/school/domain"
	"github.com/edukita/kertas/pkg/db"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("school.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" {
		return nil, domain.ErrInvalidSlug
	}

	now := time.Now().UTC()
	school := &domain.School{
		ID:        s.genID.Generate().Int64(),
		Name:      name,
		Slug:      slug,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, s.db, school); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}

	resp := toResponse(school)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Response, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	school, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if school == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(school)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	items, err := s.repo.FindAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	if id == 0 {
		return false, nil
	}
	school, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return false, err
	}
	return school != nil && school.Active, nil
}

func toResponse(school *domain.School) domain.Response {
	return domain.Response{
		ID:        strconv.FormatInt(school.ID, 10),
		Name:      school.Name,
		Slug:      school.Slug,
		Active:    school.Active,
		CreatedAt: school.CreatedAt,
		UpdatedAt: school.UpdatedAt,
	}
}
