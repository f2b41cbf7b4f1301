package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/edukita/kertas/internal/audit/domain"
	"github.com/edukita/kertas/internal/cache"
	catalogdomain "github.com/edukita/kertas/internal/catalog/domain"
	"github.com/edukita/kertas/internal/clock"
	"github.com/edukita/kertas/internal/config"
	"github.com/edukita/kertas/internal/permission/domain"
	"github.com/edukita/kertas/internal/principal"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Catalog catalogdomain.Service
	Cache   cache.ResolverCache
	Cfg     config.Config
	Policy  *config.CreditPolicyHolder
	Audit   auditdomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	genID   *snowflake.Node
	clock   clock.Clock
	catalog catalogdomain.Service
	cache   cache.ResolverCache
	policy  *config.CreditPolicyHolder
	audit   auditdomain.Service

	defaultSchoolID int64
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("permission.service"),
		repo:            p.Repo,
		genID:           p.GenID,
		clock:           p.Clock,
		catalog:         p.Catalog,
		cache:           p.Cache,
		policy:          p.Policy,
		audit:           p.Audit,
		defaultSchoolID: p.Cfg.DefaultSchoolID,
	}
}

// Resolve walks the precedence chain: a user record wins over a school
// record, which wins over the default tier. No record at any tier means
// allow at the document type's base cost.
func (s *Service) Resolve(ctx context.Context, p principal.Principal, documentTypeID int64) (*domain.Resolution, error) {
	dt, err := s.documentType(ctx, documentTypeID)
	if err != nil {
		return nil, err
	}

	if p.UserID != 0 {
		record, err := s.repo.FindByScope(ctx, s.db, string(domain.ScopeUser), int64(p.UserID), documentTypeID)
		if err != nil {
			return nil, err
		}
		if record != nil {
			return resolutionFrom(record, dt, domain.SourceUser), nil
		}
	}

	if p.SchoolID != 0 {
		record, err := s.repo.FindByScope(ctx, s.db, string(domain.ScopeSchool), int64(p.SchoolID), documentTypeID)
		if err != nil {
			return nil, err
		}
		if record != nil {
			return resolutionFrom(record, dt, domain.SourceSchool), nil
		}
	}

	if s.defaultSchoolID != 0 && s.defaultSchoolID != int64(p.SchoolID) {
		record, err := s.repo.FindByScope(ctx, s.db, string(domain.ScopeSchool), s.defaultSchoolID, documentTypeID)
		if err != nil {
			return nil, err
		}
		if record != nil {
			return resolutionFrom(record, dt, domain.SourceDefault), nil
		}
	}

	return &domain.Resolution{
		Allowed:        true,
		Credits:        dt.CreditsRequired,
		Source:         domain.SourceBase,
		DocumentTypeID: dt.ID,
	}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	if err := validateScope(req.Scope); err != nil {
		return nil, err
	}
	records, err := s.repo.ListByScope(ctx, s.db, string(req.Scope.Type), req.Scope.ID)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Response, 0, len(records))
	for i := range records {
		resp = append(resp, toResponse(&records[i]))
	}
	return resp, nil
}

func (s *Service) Grant(ctx context.Context, req domain.GrantRequest) (*domain.Response, error) {
	if err := validateScope(req.Scope); err != nil {
		return nil, err
	}
	if req.CreditsPerUse != nil && *req.CreditsPerUse < 0 {
		return nil, domain.ErrInvalidCredits
	}
	if _, err := s.catalog.Get(ctx, req.DocumentTypeID); err != nil {
		return nil, err
	}

	record := s.buildRecord(req.Scope, req.DocumentTypeID, req.IsAllowed, req.CreditsPerUse)
	if err := s.repo.Upsert(ctx, s.db, record); err != nil {
		return nil, err
	}

	action := "permission.grant"
	if !req.IsAllowed {
		action = "permission.deny"
	}
	s.writeAudit(ctx, action, req.Scope, map[string]any{
		"document_type_id": strconv.FormatInt(req.DocumentTypeID, 10),
		"is_allowed":       req.IsAllowed,
	})

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) Revoke(ctx context.Context, scope domain.Scope, documentTypeID int64) (*domain.Response, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	if _, err := s.catalog.Get(ctx, documentTypeID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := s.buildRecord(scope, documentTypeID, false, nil)
	record.RevokedAt = &now
	if err := s.repo.Upsert(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, "permission.revoke", scope, map[string]any{
		"document_type_id": strconv.FormatInt(documentTypeID, 10),
	})

	resp := toResponse(record)
	return &resp, nil
}

// BulkApply validates the whole batch before any write and applies it inside
// one transaction, so readers never observe a half-applied batch.
func (s *Service) BulkApply(ctx context.Context, req domain.BulkRequest) (*domain.BulkResult, error) {
	if err := validateScope(req.Scope); err != nil {
		return nil, err
	}
	if req.CreditsPerUse != nil && *req.CreditsPerUse < 0 {
		return nil, domain.ErrInvalidCredits
	}

	category := strings.ToLower(strings.TrimSpace(req.Category))
	hasIDs := len(req.DocumentTypeIDs) > 0
	if hasIDs && category != "" {
		return nil, domain.ErrAmbiguousBatch
	}

	var ids []int64
	switch {
	case hasIDs:
		seen := make(map[int64]struct{}, len(req.DocumentTypeIDs))
		for _, id := range req.DocumentTypeIDs {
			if id == 0 {
				return nil, domain.ErrUnknownDocument
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if _, err := s.catalog.Get(ctx, id); err != nil {
				return nil, domain.ErrUnknownDocument
			}
			ids = append(ids, id)
		}
	case category != "":
		categoryIDs, err := s.catalog.IDsByCategory(ctx, category)
		if err != nil {
			return nil, err
		}
		ids = categoryIDs
	}

	if len(ids) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if max := s.policy.Current().MaxBulkDocumentTypes; max > 0 && len(ids) > max {
		return nil, domain.ErrBatchTooLarge
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			record := s.buildRecord(req.Scope, id, req.IsAllowed, req.CreditsPerUse)
			if err := s.repo.Upsert(ctx, tx, record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, "permission.bulk_apply", req.Scope, map[string]any{
		"count":      len(ids),
		"category":   category,
		"is_allowed": req.IsAllowed,
	})
	s.log.Info("bulk permission apply",
		zap.String("scope_type", string(req.Scope.Type)),
		zap.Int64("scope_id", req.Scope.ID),
		zap.Int("count", len(ids)),
		zap.Bool("is_allowed", req.IsAllowed),
	)

	return &domain.BulkResult{Applied: len(ids)}, nil
}

func (s *Service) documentType(ctx context.Context, id int64) (*catalogdomain.Response, error) {
	if cached, ok := s.cache.GetDocumentType(id); ok && cached.IsActive {
		return cached, nil
	}
	dt, err := s.catalog.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetDocumentType(id, dt)
	return dt, nil
}

func (s *Service) buildRecord(scope domain.Scope, documentTypeID int64, isAllowed bool, creditsPerUse *int64) *domain.PermissionRecord {
	now := s.clock.Now()
	return &domain.PermissionRecord{
		ID:             s.genID.Generate().Int64(),
		ScopeType:      string(scope.Type),
		ScopeID:        scope.ID,
		DocumentTypeID: documentTypeID,
		IsAllowed:      isAllowed,
		CreditsPerUse:  creditsPerUse,
		GrantedAt:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *Service) writeAudit(ctx context.Context, action string, scope domain.Scope, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	targetID := strconv.FormatInt(scope.ID, 10)
	metadata["scope_type"] = string(scope.Type)
	if err := s.audit.AuditLog(ctx, nil, "", nil, action, "permission", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func resolutionFrom(record *domain.PermissionRecord, dt *catalogdomain.Response, source string) *domain.Resolution {
	credits := dt.CreditsRequired
	if record.CreditsPerUse != nil {
		credits = *record.CreditsPerUse
	}
	return &domain.Resolution{
		Allowed:        record.IsAllowed,
		Credits:        credits,
		Source:         source,
		DocumentTypeID: dt.ID,
	}
}

func validateScope(scope domain.Scope) error {
	switch scope.Type {
	case domain.ScopeUser, domain.ScopeSchool:
	default:
		return domain.ErrInvalidScope
	}
	if scope.ID == 0 {
		return domain.ErrInvalidScope
	}
	return nil
}

func toResponse(record *domain.PermissionRecord) domain.Response {
	return domain.Response{
		ID:             strconv.FormatInt(record.ID, 10),
		ScopeType:      record.ScopeType,
		ScopeID:        strconv.FormatInt(record.ScopeID, 10),
		DocumentTypeID: strconv.FormatInt(record.DocumentTypeID, 10),
		IsAllowed:      record.IsAllowed,
		CreditsPerUse:  record.CreditsPerUse,
		GrantedAt:      record.GrantedAt,
		RevokedAt:      record.RevokedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}
