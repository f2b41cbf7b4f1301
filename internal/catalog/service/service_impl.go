package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/edukita/kertas/internal/catalog/domain"
	"github.com/edukita/kertas/internal/clock"
	"github.com/edukita/kertas/pkg/db"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	code := strings.ToLower(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if category == "" {
		return nil, domain.ErrInvalidCategory
	}
	if req.CreditsRequired < 0 {
		return nil, domain.ErrInvalidCredits
	}
	credits := req.CreditsRequired
	if credits == 0 {
		credits = 1
	}

	nameID := strings.TrimSpace(req.NameID)
	if nameID == "" {
		nameID = name
	}

	popular := false
	if req.IsPopular != nil {
		popular = *req.IsPopular
	}

	now := s.clock.Now()
	dt := &domain.DocumentType{
		ID:              s.genID.Generate().Int64(),
		Code:            code,
		Name:            name,
		NameID:          nameID,
		Category:        category,
		CreditsRequired: credits,
		IsActive:        true,
		IsPopular:       popular,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.Metadata != nil {
		dt.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Create(ctx, s.db, dt); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrCodeTaken
		}
		return nil, err
	}

	resp := toResponse(dt)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListFilter{
		Category:        strings.ToLower(strings.TrimSpace(req.Category)),
		Search:          strings.TrimSpace(req.Search),
		IncludeInactive: req.IncludeInactive,
	}
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Response, error) {
	dt, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(dt)
	return &resp, nil
}

func (s *Service) GetActive(ctx context.Context, id int64) (*domain.Response, error) {
	dt, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !dt.IsActive {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(dt)
	return &resp, nil
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	if id == 0 {
		return domain.ErrInvalidID
	}
	affected, err := s.repo.SetActive(ctx, s.db, id, active, s.clock.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) SetPopular(ctx context.Context, id int64, popular bool) error {
	if id == 0 {
		return domain.ErrInvalidID
	}
	affected, err := s.repo.SetPopular(ctx, s.db, id, popular, s.clock.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) BulkSetActive(ctx context.Context, req domain.BulkActiveRequest) (int64, error) {
	filter := domain.BulkActiveFilter{
		Category: strings.ToLower(strings.TrimSpace(req.Category)),
		Active:   req.Active,
	}
	affected, err := s.repo.BulkSetActive(ctx, s.db, filter, s.clock.Now())
	if err != nil {
		return 0, err
	}
	s.log.Info("bulk active toggle",
		zap.String("category", filter.Category),
		zap.Bool("active", filter.Active),
		zap.Int64("rows", affected),
	)
	return affected, nil
}

func (s *Service) IncrementUsage(ctx context.Context, id int64) error {
	if id == 0 {
		return domain.ErrInvalidID
	}
	affected, err := s.repo.IncrementUsage(ctx, s.db, id, s.clock.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) IDsByCategory(ctx context.Context, category string) ([]int64, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return nil, domain.ErrInvalidCategory
	}
	return s.repo.FindIDsByCategory(ctx, s.db, category)
}

func (s *Service) find(ctx context.Context, id int64) (*domain.DocumentType, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	dt, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if dt == nil {
		return nil, domain.ErrNotFound
	}
	return dt, nil
}

func toResponse(dt *domain.DocumentType) domain.Response {
	resp := domain.Response{
		ID:              strconv.FormatInt(dt.ID, 10),
		Code:            dt.Code,
		Name:            dt.Name,
		NameID:          dt.NameID,
		Category:        dt.Category,
		CreditsRequired: dt.CreditsRequired,
		IsActive:        dt.IsActive,
		IsPopular:       dt.IsPopular,
		UsageCount:      dt.UsageCount,
		LastUsedAt:      dt.LastUsedAt,
		CreatedAt:       dt.CreatedAt,
		UpdatedAt:       dt.UpdatedAt,
	}
	if dt.Metadata != nil {
		resp.Metadata = map[string]any(dt.Metadata)
	}
	return resp
}
