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

	"github.com/edukita/kertas/internal/catalog/domain"
	"github.com/edukita/kertas/internal/catalog/repository"
	"github.com/edukita/kertas/internal/clock"
)

type testEnv struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   domain.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.DocumentType{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})

	return &testEnv{db: db, node: node, clock: fake, svc: svc}
}

func (e *testEnv) create(t *testing.T, req domain.CreateRequest) *domain.Response {
	t.Helper()
	resp, err := e.svc.Create(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func parseID(t *testing.T, raw string) int64 {
	t.Helper()
	id, err := snowflake.ParseString(raw)
	require.NoError(t, err)
	return id.Int64()
}

func TestCreateNormalizesAndDefaults(t *testing.T) {
	env := newTestEnv(t)

	resp := env.create(t, domain.CreateRequest{
		Code:     "  Report_Card  ",
		Name:     "Report Card",
		Category: "Academic",
	})
	assert.Equal(t, "report_card", resp.Code)
	assert.Equal(t, "academic", resp.Category)
	assert.Equal(t, "Report Card", resp.NameID) // falls back to Name
	assert.Equal(t, int64(1), resp.CreditsRequired)
	assert.True(t, resp.IsActive)
	assert.False(t, resp.IsPopular)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, domain.CreateRequest{Code: "transcript", Name: "Transcript", Category: "academic"})

	_, err := env.svc.Create(context.Background(), domain.CreateRequest{
		Code:     "TRANSCRIPT",
		Name:     "Another",
		Category: "academic",
	})
	assert.ErrorIs(t, err, domain.ErrCodeTaken)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, domain.CreateRequest{Name: "x", Category: "academic"})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = env.svc.Create(ctx, domain.CreateRequest{Code: "x", Category: "academic"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = env.svc.Create(ctx, domain.CreateRequest{Code: "x", Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)

	_, err = env.svc.Create(ctx, domain.CreateRequest{Code: "x", Name: "x", Category: "academic", CreditsRequired: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidCredits)
}

func TestListFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.create(t, domain.CreateRequest{Code: "report_card", Name: "Report Card", NameID: "Rapor", Category: "academic"})
	env.create(t, domain.CreateRequest{Code: "enrollment_letter", Name: "Enrollment Letter", NameID: "Surat Keterangan Aktif", Category: "letter"})
	retired := env.create(t, domain.CreateRequest{Code: "old_form", Name: "Old Form", Category: "letter"})
	require.NoError(t, env.svc.SetActive(ctx, parseID(t, retired.ID), false))

	all, err := env.svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	withInactive, err := env.svc.List(ctx, domain.ListRequest{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, withInactive, 3)

	letters, err := env.svc.List(ctx, domain.ListRequest{Category: "Letter"})
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "enrollment_letter", letters[0].Code)

	// Search matches the Indonesian name too.
	found, err := env.svc.List(ctx, domain.ListRequest{Search: "rapor"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "report_card", found[0].Code)
}

func TestGetActiveExcludesInactive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := env.create(t, domain.CreateRequest{Code: "report_card", Name: "Report Card", Category: "academic"})
	id := parseID(t, resp.ID)

	require.NoError(t, env.svc.SetActive(ctx, id, false))

	_, err := env.svc.GetActive(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Plain Get still serves admin reads.
	dt, err := env.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, dt.IsActive)
}

func TestSetActiveUnknownID(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.SetActive(context.Background(), env.node.Generate().Int64(), true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetPopular(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := env.create(t, domain.CreateRequest{Code: "report_card", Name: "Report Card", Category: "academic"})
	id := parseID(t, resp.ID)

	require.NoError(t, env.svc.SetPopular(ctx, id, true))
	dt, err := env.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, dt.IsPopular)
}

func TestBulkSetActiveByCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.create(t, domain.CreateRequest{Code: "report_card", Name: "Report Card", Category: "academic"})
	env.create(t, domain.CreateRequest{Code: "transcript", Name: "Transcript", Category: "academic"})
	env.create(t, domain.CreateRequest{Code: "enrollment_letter", Name: "Enrollment Letter", Category: "letter"})

	affected, err := env.svc.BulkSetActive(ctx, domain.BulkActiveRequest{Category: "academic", Active: false})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	active, err := env.svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "enrollment_letter", active[0].Code)

	restored, err := env.svc.BulkSetActive(ctx, domain.BulkActiveRequest{Category: "academic", Active: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), restored)
}

func TestIncrementUsage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := env.create(t, domain.CreateRequest{Code: "report_card", Name: "Report Card", Category: "academic"})
	id := parseID(t, resp.ID)

	require.NoError(t, env.svc.IncrementUsage(ctx, id))
	require.NoError(t, env.svc.IncrementUsage(ctx, id))

	dt, err := env.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), dt.UsageCount)
	require.NotNil(t, dt.LastUsedAt)
}

func TestIDsByCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, domain.CreateRequest{Code: "report_card", Name: "Report Card", Category: "academic"})
	env.create(t, domain.CreateRequest{Code: "enrollment_letter", Name: "Enrollment Letter", Category: "letter"})

	ids, err := env.svc.IDsByCategory(ctx, "Academic")
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, parseID(t, a.ID), ids[0])

	_, err = env.svc.IDsByCategory(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}
