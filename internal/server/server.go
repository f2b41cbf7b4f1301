package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/edukita/kertas/internal/audit"
	auditdomain "github.com/edukita/kertas/internal/audit/domain"
	"github.com/edukita/kertas/internal/authorization"
	"github.com/edukita/kertas/internal/cache"
	"github.com/edukita/kertas/internal/catalog"
	catalogdomain "github.com/edukita/kertas/internal/catalog/domain"
	"github.com/edukita/kertas/internal/clock"
	"github.com/edukita/kertas/internal/config"
	"github.com/edukita/kertas/internal/credit"
	creditdomain "github.com/edukita/kertas/internal/credit/domain"
	"github.com/edukita/kertas/internal/generation"
	generationdomain "github.com/edukita/kertas/internal/generation/domain"
	"github.com/edukita/kertas/internal/observability"
	obslogger "github.com/edukita/kertas/internal/observability/logger"
	obsmetrics "github.com/edukita/kertas/internal/observability/metrics"
	obstracing "github.com/edukita/kertas/internal/observability/tracing"
	"github.com/edukita/kertas/internal/payments"
	paymentsdomain "github.com/edukita/kertas/internal/payments/domain"
	"github.com/edukita/kertas/internal/permission"
	permissiondomain "github.com/edukita/kertas/internal/permission/domain"
	"github.com/edukita/kertas/internal/ratelimit"
	"github.com/edukita/kertas/internal/school"
	schooldomain "github.com/edukita/kertas/internal/school/domain"
	"github.com/edukita/kertas/internal/usagestats"
	usagestatsdomain "github.com/edukita/kertas/internal/usagestats/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	cache.Module,
	clock.Module,
	school.Module,
	catalog.Module,
	permission.Module,
	credit.Module,
	usagestats.Module,
	generation.Module,
	payments.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obsCfg.ServiceName))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	schoolSvc       schooldomain.Service
	catalogSvc      catalogdomain.Service
	permissionSvc   permissiondomain.Service
	creditSvc       creditdomain.Service
	usageSvc        usagestatsdomain.Service
	generationSvc   generationdomain.Service
	paymentsSvc     paymentsdomain.Service
	obsMetrics      *obsmetrics.Metrics
	generateLimiter *ratelimit.GenerateLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	SchoolSvc       schooldomain.Service
	CatalogSvc      catalogdomain.Service
	PermissionSvc   permissiondomain.Service
	CreditSvc       creditdomain.Service
	UsageSvc        usagestatsdomain.Service
	GenerationSvc   generationdomain.Service
	PaymentsSvc     paymentsdomain.Service
	ObsMetrics      *obsmetrics.Metrics          `optional:"true"`
	GenerateLimiter *ratelimit.GenerateLimiter   `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		schoolSvc:       p.SchoolSvc,
		catalogSvc:      p.CatalogSvc,
		permissionSvc:   p.PermissionSvc,
		creditSvc:       p.CreditSvc,
		usageSvc:        p.UsageSvc,
		generationSvc:   p.GenerationSvc,
		paymentsSvc:     p.PaymentsSvc,
		obsMetrics:      p.ObsMetrics,
		generateLimiter: p.GenerateLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Payment Webhooks --------
	// Gateways authenticate with signatures, not principal headers.
	api.POST("/payments/webhooks/:provider", s.HandlePaymentWebhook)

	authed := api.Group("", s.PrincipalRequired())

	// -------- Document Catalog --------
	authed.GET("/document-types", s.ListDocumentTypes)
	authed.GET("/document-types/:id", s.GetDocumentType)

	// -------- Permissions --------
	authed.GET("/permissions", s.authorizeAction(authorization.ObjectPermission, authorization.ActionPermissionView), s.ListPermissions)
	authed.POST("/permissions", s.authorizeAction(authorization.ObjectPermission, authorization.ActionPermissionGrant), s.GrantPermission)
	authed.POST("/permissions/revoke", s.authorizeAction(authorization.ObjectPermission, authorization.ActionPermissionGrant), s.RevokePermission)
	authed.GET("/permissions/check/:documentTypeId", s.CheckPermission)

	// -------- Generation --------
	authed.POST("/documents/generate", s.GenerateRateLimit(), s.GenerateDocument)
	authed.POST("/documents/:documentTypeId/track-usage", s.TrackDocumentUsage)
	authed.GET("/documents/stats", s.authorizeAction(authorization.ObjectStats, authorization.ActionStatsView), s.GetDocumentStats)

	// -------- Credits --------
	authed.GET("/credits/balance", s.authorizeAction(authorization.ObjectCredit, authorization.ActionCreditView), s.GetCreditBalance)
	authed.GET("/credits/packages", s.ListCreditPackages)
	authed.POST("/credits/purchase", s.StartCreditPurchase)
	authed.GET("/credits/transactions", s.authorizeAction(authorization.ObjectCredit, authorization.ActionCreditView), s.ListCreditTransactions)

	if s.cfg.Environment != "production" {
		api.POST("/test/cleanup", s.TestCleanup)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AdminSecretRequired())

	// -------- Schools --------
	admin.POST("/schools", s.CreateSchool)
	admin.GET("/schools", s.ListSchools)
	admin.GET("/schools/:id", s.GetSchool)

	// -------- Document Catalog --------
	admin.POST("/document-types", s.CreateDocumentType)
	admin.PATCH("/document-types/:id/active", s.SetDocumentTypeActive)
	admin.PATCH("/document-types/:id/popular", s.SetDocumentTypePopular)
	admin.POST("/document-types/bulk-active", s.BulkSetDocumentTypesActive)

	// -------- Permissions --------
	admin.POST("/permissions/bulk", s.BulkApplyPermissions)

	// -------- Credits --------
	admin.POST("/credits/grant", s.GrantCredits)

	// -------- Stats --------
	admin.POST("/stats/rebuild", s.RebuildDocumentStats)

	// -------- Audit --------
	admin.GET("/audit-logs", s.ListAuditLogs)
}
