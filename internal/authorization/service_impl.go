package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/edukita/kertas/internal/audit/domain"
	"github.com/edukita/kertas/internal/principal"
)

//go:embed model.conf
var modelText string

const (
	ObjectDocumentType = "document_type"
	ObjectPermission   = "permission"
	ObjectCredit       = "credit"
	ObjectStats        = "stats"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionDocumentTypeManage = "document_type.manage"
	ActionDocumentTypeView   = "document_type.view"

	ActionPermissionGrant = "permission.grant"
	ActionPermissionView  = "permission.view"

	ActionCreditGrant = "credit.grant"
	ActionCreditView  = "credit.view"

	ActionStatsView    = "stats.view"
	ActionStatsRebuild = "stats.rebuild"

	ActionAuditLogView = "audit_log.view"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, p principal.Principal, object string, action string) error {
	if p.SchoolID == 0 {
		return ErrInvalidSchool
	}
	if p.UserID == 0 {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("user:%d", int64(p.UserID))
	domain := fmt.Sprintf("school:%d", int64(p.SchoolID))
	roleName := roleFor(p.Role)

	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, p, object, action)
		return ErrForbidden
	}
	return nil
}

func roleFor(role principal.Role) string {
	switch role {
	case principal.RoleSuperAdmin:
		return "role:owner"
	case principal.RoleAdmin:
		return "role:admin"
	default:
		return "role:operator"
	}
}

// ensureGrouping keeps the casbin grouping in sync with the role asserted by
// the upstream auth layer, replacing a stale assignment when the role changed.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, p principal.Principal, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	schoolID := p.SchoolID
	actorID := strconv.FormatInt(int64(p.UserID), 10)
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, &schoolID, "user", &actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
		"role":   string(p.Role),
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Operators run day-to-day document work.
		{"role:operator", ObjectDocumentType, ActionDocumentTypeView},
		{"role:operator", ObjectStats, ActionStatsView},
		{"role:operator", ObjectCredit, ActionCreditView},
		{"role:operator", ObjectPermission, ActionPermissionView},

		// Admins additionally manage the catalog and grants for their school.
		{"role:admin", ObjectDocumentType, ActionDocumentTypeView},
		{"role:admin", ObjectDocumentType, ActionDocumentTypeManage},
		{"role:admin", ObjectPermission, ActionPermissionView},
		{"role:admin", ObjectPermission, ActionPermissionGrant},
		{"role:admin", ObjectCredit, ActionCreditView},
		{"role:admin", ObjectStats, ActionStatsView},
		{"role:admin", ObjectStats, ActionStatsRebuild},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},

		// Owners get everything, including credit grants.
		{"role:owner", ObjectDocumentType, ActionDocumentTypeView},
		{"role:owner", ObjectDocumentType, ActionDocumentTypeManage},
		{"role:owner", ObjectPermission, ActionPermissionView},
		{"role:owner", ObjectPermission, ActionPermissionGrant},
		{"role:owner", ObjectCredit, ActionCreditView},
		{"role:owner", ObjectCredit, ActionCreditGrant},
		{"role:owner", ObjectStats, ActionStatsView},
		{"role:owner", ObjectStats, ActionStatsRebuild},
		{"role:owner", ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
