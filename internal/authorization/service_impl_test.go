package authorization

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edukita/kertas/internal/principal"
)

func newTestService(t *testing.T) (Service, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Enforcer: enforcer,
	})
	return svc, node
}

func TestAuthorizeValidation(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()

	err := svc.Authorize(ctx, principal.Principal{UserID: node.Generate()}, ObjectStats, ActionStatsView)
	assert.ErrorIs(t, err, ErrInvalidSchool)

	err = svc.Authorize(ctx, principal.Principal{SchoolID: node.Generate()}, ObjectStats, ActionStatsView)
	assert.ErrorIs(t, err, ErrInvalidActor)

	p := principal.Principal{SchoolID: node.Generate(), UserID: node.Generate()}
	err = svc.Authorize(ctx, p, " ", ActionStatsView)
	assert.ErrorIs(t, err, ErrInvalidObject)

	err = svc.Authorize(ctx, p, ObjectStats, " ")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestTeacherCanViewButNotGrant(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	p := principal.Principal{
		SchoolID: node.Generate(),
		UserID:   node.Generate(),
		Role:     principal.RoleTeacher,
	}

	assert.NoError(t, svc.Authorize(ctx, p, ObjectDocumentType, ActionDocumentTypeView))
	assert.NoError(t, svc.Authorize(ctx, p, ObjectCredit, ActionCreditView))

	assert.ErrorIs(t, svc.Authorize(ctx, p, ObjectPermission, ActionPermissionGrant), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, p, ObjectDocumentType, ActionDocumentTypeManage), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, p, ObjectCredit, ActionCreditGrant), ErrForbidden)
}

func TestAdminCanManageSchool(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	p := principal.Principal{
		SchoolID: node.Generate(),
		UserID:   node.Generate(),
		Role:     principal.RoleAdmin,
	}

	assert.NoError(t, svc.Authorize(ctx, p, ObjectPermission, ActionPermissionGrant))
	assert.NoError(t, svc.Authorize(ctx, p, ObjectDocumentType, ActionDocumentTypeManage))
	assert.NoError(t, svc.Authorize(ctx, p, ObjectStats, ActionStatsRebuild))

	// Credit grants stay with the owner role.
	assert.ErrorIs(t, svc.Authorize(ctx, p, ObjectCredit, ActionCreditGrant), ErrForbidden)
}

func TestSuperAdminGetsEverything(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	p := principal.Principal{
		SchoolID: node.Generate(),
		UserID:   node.Generate(),
		Role:     principal.RoleSuperAdmin,
	}

	assert.NoError(t, svc.Authorize(ctx, p, ObjectCredit, ActionCreditGrant))
	assert.NoError(t, svc.Authorize(ctx, p, ObjectAuditLog, ActionAuditLogView))
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	schoolID := node.Generate()
	userID := node.Generate()

	asAdmin := principal.Principal{SchoolID: schoolID, UserID: userID, Role: principal.RoleAdmin}
	require.NoError(t, svc.Authorize(ctx, asAdmin, ObjectPermission, ActionPermissionGrant))

	// Demoted upstream; the stale admin grouping must not linger.
	asTeacher := principal.Principal{SchoolID: schoolID, UserID: userID, Role: principal.RoleTeacher}
	assert.ErrorIs(t, svc.Authorize(ctx, asTeacher, ObjectPermission, ActionPermissionGrant), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, asTeacher, ObjectPermission, ActionPermissionView))
}

func TestAuthorizationScopedToSchool(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	userID := node.Generate()

	home := principal.Principal{SchoolID: node.Generate(), UserID: userID, Role: principal.RoleAdmin}
	require.NoError(t, svc.Authorize(ctx, home, ObjectPermission, ActionPermissionGrant))

	// The same user asserted as teacher in another school gets only the
	// operator capabilities there.
	elsewhere := principal.Principal{SchoolID: node.Generate(), UserID: userID, Role: principal.RoleTeacher}
	assert.ErrorIs(t, svc.Authorize(ctx, elsewhere, ObjectPermission, ActionPermissionGrant), ErrForbidden)
}
