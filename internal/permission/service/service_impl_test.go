package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edukita/kertas/internal/cache"
	catalogdomain "github.com/edukita/kertas/internal/catalog/domain"
	catalogrepository "github.com/edukita/kertas/internal/catalog/repository"
	catalogservice "github.com/edukita/kertas/internal/catalog/service"
	"github.com/edukita/kertas/internal/clock"
	"github.com/edukita/kertas/internal/config"
	"github.com/edukita/kertas/internal/permission/domain"
	"github.com/edukita/kertas/internal/permission/repository"
	"github.com/edukita/kertas/internal/principal"
)

type testEnv struct {
	db      *gorm.DB
	node    *snowflake.Node
	catalog catalogdomain.Service
	svc     domain.Service
	cfg     config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&catalogdomain.DocumentType{},
		&domain.PermissionRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	catalogSvc := catalogservice.New(catalogservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  catalogrepository.Provide(),
	})

	cfg := config.Config{DefaultSchoolID: node.Generate().Int64()}

	svc := New(Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Clock:   fake,
		Repo:    repository.Provide(),
		Catalog: catalogSvc,
		Cache:   cache.NewResolverCache(),
		Cfg:     cfg,
		Policy:  &config.CreditPolicyHolder{},
	})

	return &testEnv{db: db, node: node, catalog: catalogSvc, svc: svc, cfg: cfg}
}

func (e *testEnv) createDocumentType(t *testing.T, code string, credits int64) int64 {
	t.Helper()
	resp, err := e.catalog.Create(context.Background(), catalogdomain.CreateRequest{
		Code:            code,
		Name:            code,
		NameID:          code,
		Category:        "academic",
		CreditsRequired: credits,
	})
	require.NoError(t, err)
	id, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)
	return id.Int64()
}

func TestResolveAllowsByDefaultAtBaseCost(t *testing.T) {
	env := newTestEnv(t)
	docID := env.createDocumentType(t, "report_card", 3)

	p := principal.Principal{SchoolID: env.node.Generate(), UserID: env.node.Generate()}
	res, err := env.svc.Resolve(context.Background(), p, docID)
	require.NoError(t, err)

	assert.True(t, res.Allowed)
	assert.Equal(t, int64(3), res.Credits)
	assert.Equal(t, domain.SourceBase, res.Source)
}

func TestResolveUserRecordWinsOverSchool(t *testing.T) {
	env := newTestEnv(t)
	docID := env.createDocumentType(t, "transcript", 2)
	ctx := context.Background()

	schoolID := env.node.Generate()
	userID := env.node.Generate()

	_, err := env.svc.Grant(ctx, domain.GrantRequest{
		Scope:          domain.Scope{Type: domain.ScopeSchool, ID: schoolID.Int64()},
		DocumentTypeID: docID,
		IsAllowed:      false,
	})
	require.NoError(t, err)

	custom := int64(7)
	_, err = env.svc.Grant(ctx, domain.GrantRequest{
		Scope:          domain.Scope{Type: domain.ScopeUser, ID: userID.Int64()},
		DocumentTypeID: docID,
		IsAllowed:      true,
		CreditsPerUse:  &custom,
	})
	require.NoError(t, err)

	res, err := env.svc.Resolve(ctx, principal.Principal{SchoolID: schoolID, UserID: userID}, docID)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(7), res.Credits)
	assert.Equal(t, domain.SourceUser, res.Source)

	// Another user in the same school falls through to the school denial.
	other, err := env.svc.Resolve(ctx, principal.Principal{SchoolID: schoolID, UserID: env.node.Generate()}, docID)
	require.NoError(t, err)
	assert.False(t, other.Allowed)
	assert.Equal(t, domain.SourceSchool, other.Source)
}

func TestResolveFallsBackToDefaultSchool(t *testing.T) {
	env := newTestEnv(t)
	docID := env.createDocumentType(t, "transfer_letter", 2)
	ctx := context.Background()

	_, err := env.svc.Grant(ctx, domain.GrantRequest{
		Scope:          domain.Scope{Type: domain.ScopeSchool, ID: env.cfg.DefaultSchoolID},
		DocumentTypeID: docID,
		IsAllowed:      false,
	})
	require.NoError(t, err)

	res, err := env.svc.Resolve(ctx, principal.Principal{
		SchoolID: env.node.Generate(),
		UserID:   env.node.Generate(),
	}, docID)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, domain.SourceDefault, res.Source)
}

func TestResolveNilCreditsFallsBackToBaseCost(t *testing.T) {
	env := newTestEnv(t)
	docID := env.createDocumentType(t, "certificate", 5)
	ctx := context.Background()

	schoolID := env.node.Generate()
	_, err := env.svc.Grant(ctx, domain.GrantRequest{
		Scope:          domain.Scope{Type: domain.ScopeSchool, ID: schoolID.Int64()},
		DocumentTypeID: docID,
		IsAllowed:      true,
	})
	require.NoError(t, err)

	res, err := env.svc.Resolve(ctx, principal.Principal{SchoolID: schoolID, UserID: env.node.Generate()}, docID)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(5), res.Credits)
	assert.Equal(t, domain.SourceSchool, res.Source)
}

func TestResolveUnknownDocumentType(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Resolve(context.Background(), principal.Principal{
		SchoolID: env.node.Generate(),
	}, env.node.Generate().Int64())
	assert.ErrorIs(t, err, catalogdomain.ErrNotFound)
}

func TestResolveInactiveDocumentType(t *testing.T) {
	env := newTestEnv(t)
	docID := env.createDocumentType(t, "retired_form", 1)
	require.NoError(t, env.catalog.SetActive(context.Background(), docID, false))

	_, err := env.svc.Resolve(context.Background(), principal.Principal{
		SchoolID: env.node.Generate(),
	}, docID)
	assert.ErrorIs(t, err, catalogdomain.ErrNotFound)
}

func TestRevokeDeniesAndStampsRevocation(t *testing.T) {
	env := newTestEnv(t)
	docID := env.createDocumentType(t, "enrollment_letter", 1)
	ctx := context.Background()

	schoolID := env.node.Generate()
	scope := domain.Scope{Type: domain.ScopeSchool, ID: schoolID.Int64()}

	_, err := env.svc.Grant(ctx, domain.GrantRequest{
		Scope:          scope,
		DocumentTypeID: docID,
		IsAllowed:      true,
	})
	require.NoError(t, err)

	revoked, err := env.svc.Revoke(ctx, scope, docID)
	require.NoError(t, err)
	assert.False(t, revoked.IsAllowed)
	require.NotNil(t, revoked.RevokedAt)

	res, err := env.svc.Resolve(ctx, principal.Principal{SchoolID: schoolID, UserID: env.node.Generate()}, docID)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, domain.SourceSchool, res.Source)
}

func TestGrantRejectsNegativeCredits(t *testing.T) {
	env := newTestEnv(t)
	docID := env.createDocumentType(t, "report_card", 2)

	bad := int64(-1)
	_, err := env.svc.Grant(context.Background(), domain.GrantRequest{
		Scope:          domain.Scope{Type: domain.ScopeSchool, ID: env.node.Generate().Int64()},
		DocumentTypeID: docID,
		IsAllowed:      true,
		CreditsPerUse:  &bad,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredits)
}

func TestBulkApplyByIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.createDocumentType(t, "doc_a", 1)
	second := env.createDocumentType(t, "doc_b", 1)

	schoolID := env.node.Generate()
	result, err := env.svc.BulkApply(ctx, domain.BulkRequest{
		Scope:           domain.Scope{Type: domain.ScopeSchool, ID: schoolID.Int64()},
		DocumentTypeIDs: []int64{first, second, first},
		IsAllowed:       false,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Applied)

	for _, id := range []int64{first, second} {
		res, err := env.svc.Resolve(ctx, principal.Principal{SchoolID: schoolID, UserID: env.node.Generate()}, id)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
	}
}

func TestBulkApplyRejectsWholeBatchOnUnknownID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	known := env.createDocumentType(t, "doc_known", 1)

	schoolID := env.node.Generate()
	_, err := env.svc.BulkApply(ctx, domain.BulkRequest{
		Scope:           domain.Scope{Type: domain.ScopeSchool, ID: schoolID.Int64()},
		DocumentTypeIDs: []int64{known, env.node.Generate().Int64()},
		IsAllowed:       false,
	})
	assert.ErrorIs(t, err, domain.ErrUnknownDocument)

	// Nothing was applied, so the known type still resolves as allowed.
	res, err := env.svc.Resolve(ctx, principal.Principal{SchoolID: schoolID, UserID: env.node.Generate()}, known)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestBulkApplyByCategoryScopesToCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	academic := env.createDocumentType(t, "doc_academic", 1)
	letter, err := env.catalog.Create(ctx, catalogdomain.CreateRequest{
		Code:     "doc_letter",
		Name:     "Letter",
		NameID:   "Surat",
		Category: "letter",
	})
	require.NoError(t, err)
	letterID, err := snowflake.ParseString(letter.ID)
	require.NoError(t, err)

	schoolID := env.node.Generate()
	result, err := env.svc.BulkApply(ctx, domain.BulkRequest{
		Scope:     domain.Scope{Type: domain.ScopeSchool, ID: schoolID.Int64()},
		Category:  "academic",
		IsAllowed: false,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)

	denied, err := env.svc.Resolve(ctx, principal.Principal{SchoolID: schoolID, UserID: env.node.Generate()}, academic)
	require.NoError(t, err)
	assert.False(t, denied.Allowed)

	allowed, err := env.svc.Resolve(ctx, principal.Principal{SchoolID: schoolID, UserID: env.node.Generate()}, letterID.Int64())
	require.NoError(t, err)
	assert.True(t, allowed.Allowed)
}

func TestBulkApplyValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	docID := env.createDocumentType(t, "doc_v", 1)
	scope := domain.Scope{Type: domain.ScopeSchool, ID: env.node.Generate().Int64()}

	_, err := env.svc.BulkApply(ctx, domain.BulkRequest{Scope: scope})
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)

	_, err = env.svc.BulkApply(ctx, domain.BulkRequest{
		Scope:           scope,
		DocumentTypeIDs: []int64{docID},
		Category:        "academic",
	})
	assert.ErrorIs(t, err, domain.ErrAmbiguousBatch)

	huge := make([]int64, 201)
	for i := range huge {
		huge[i] = int64(i + 1)
	}
	_, err = env.svc.BulkApply(ctx, domain.BulkRequest{
		Scope:           scope,
		DocumentTypeIDs: huge,
	})
	assert.ErrorIs(t, err, domain.ErrBatchTooLarge)
}
