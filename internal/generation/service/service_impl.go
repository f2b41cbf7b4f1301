package service

import (
	"context"
	"strconv"

	"go.uber.org/fx"
	"go.uber.org/zap"

	catalogdomain "github.com/edukita/kertas/internal/catalog/domain"
	creditdomain "github.com/edukita/kertas/internal/credit/domain"
	"github.com/edukita/kertas/internal/generation/domain"
	"github.com/edukita/kertas/internal/observability/logger"
	"github.com/edukita/kertas/internal/observability/metrics"
	permissiondomain "github.com/edukita/kertas/internal/permission/domain"
	"github.com/edukita/kertas/internal/principal"
	usagedomain "github.com/edukita/kertas/internal/usagestats/domain"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Permission permissiondomain.Service
	Credit     creditdomain.Service
	Catalog    catalogdomain.Service
	Usage      usagedomain.Service
	Metrics    *metrics.Metrics
}

type Service struct {
	log        *zap.Logger
	permission permissiondomain.Service
	credit     creditdomain.Service
	catalog    catalogdomain.Service
	usage      usagedomain.Service
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("generation.service"),
		permission: p.Permission,
		credit:     p.Credit,
		catalog:    p.Catalog,
		usage:      p.Usage,
		metrics:    p.Metrics,
	}
}

func (s *Service) Generate(ctx context.Context, p principal.Principal, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	resolution, err := s.permission.Resolve(ctx, p, req.DocumentTypeID)
	if err != nil {
		return nil, err
	}
	if !resolution.Allowed {
		s.recordDenied(ctx, "permission")
		return nil, permissiondomain.ErrDenied
	}

	scope := creditdomain.Scope{Type: creditdomain.ScopeSchool, ID: int64(p.SchoolID)}
	_, err = s.credit.ReserveAndDebit(ctx, creditdomain.DebitRequest{
		Scope:         scope,
		Credits:       resolution.Credits,
		Reason:        "document generation",
		ReferenceType: "document_type",
		ReferenceID:   req.DocumentTypeID,
	})
	if err != nil {
		if err == creditdomain.ErrInsufficientCredits {
			s.recordDenied(ctx, "credits")
		}
		return nil, err
	}

	// Re-check after the debit: a concurrent deactivation between resolve and
	// debit must not keep the credits.
	dt, err := s.catalog.GetActive(ctx, req.DocumentTypeID)
	if err != nil {
		s.refund(ctx, scope, resolution.Credits, req.DocumentTypeID, "document type inactive after debit")
		return nil, err
	}

	var userID *int64
	if p.UserID != 0 {
		id := int64(p.UserID)
		userID = &id
	}
	recorded, err := s.usage.RecordUsage(ctx, usagedomain.RecordRequest{
		SchoolID:       int64(p.SchoolID),
		UserID:         userID,
		DocumentTypeID: req.DocumentTypeID,
		CreditsCharged: resolution.Credits,
		Metadata:       req.DocumentData,
	})
	if err != nil {
		s.refund(ctx, scope, resolution.Credits, req.DocumentTypeID, "usage record failed")
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordDocumentGenerated(ctx, dt.Category)
	}
	logger.FromContext(ctx).Info("document generated",
		zap.String("document_id", recorded.DocumentID),
		zap.String("document_type", dt.Code),
		zap.Int64("credits_used", resolution.Credits),
		zap.String("permission_source", resolution.Source),
	)

	return &domain.GenerateResponse{
		DocumentID:       recorded.DocumentID,
		DocumentTypeID:   strconv.FormatInt(req.DocumentTypeID, 10),
		CreditsUsed:      resolution.Credits,
		PermissionSource: resolution.Source,
		GeneratedAt:      recorded.GeneratedAt,
	}, nil
}

func (s *Service) TrackUsage(ctx context.Context, p principal.Principal, documentTypeID int64) (*domain.TrackResponse, error) {
	if _, err := s.catalog.GetActive(ctx, documentTypeID); err != nil {
		return nil, err
	}

	var userID *int64
	if p.UserID != 0 {
		id := int64(p.UserID)
		userID = &id
	}
	recorded, err := s.usage.RecordUsage(ctx, usagedomain.RecordRequest{
		SchoolID:       int64(p.SchoolID),
		UserID:         userID,
		DocumentTypeID: documentTypeID,
		CreditsCharged: 0,
		Metadata:       map[string]any{"tracked": true},
	})
	if err != nil {
		return nil, err
	}

	return &domain.TrackResponse{
		DocumentID:  recorded.DocumentID,
		TrackedAt:   recorded.GeneratedAt,
		CreditsUsed: 0,
	}, nil
}

func (s *Service) refund(ctx context.Context, scope creditdomain.Scope, credits, documentTypeID int64, reason string) {
	if credits <= 0 {
		return
	}
	if _, err := s.credit.Refund(ctx, creditdomain.RefundRequest{
		Scope:         scope,
		Credits:       credits,
		Reason:        reason,
		ReferenceType: "document_type",
		ReferenceID:   documentTypeID,
	}); err != nil {
		// The debit stands without its generation; this needs operator
		// attention, so log loudly.
		s.log.Error("compensating refund failed",
			zap.Int64("school_id", scope.ID),
			zap.Int64("credits", credits),
			zap.Error(err),
		)
	}
}

func (s *Service) recordDenied(ctx context.Context, reason string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordGenerationDenied(ctx, reason)
}
