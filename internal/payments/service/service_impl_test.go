package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edukita/kertas/internal/clock"
	"github.com/edukita/kertas/internal/config"
	creditdomain "github.com/edukita/kertas/internal/credit/domain"
	creditrepository "github.com/edukita/kertas/internal/credit/repository"
	creditservice "github.com/edukita/kertas/internal/credit/service"
	"github.com/edukita/kertas/internal/payments/adapters"
	"github.com/edukita/kertas/internal/payments/adapters/manual"
	paymentdomain "github.com/edukita/kertas/internal/payments/domain"
	"github.com/edukita/kertas/internal/payments/repository"
)

const testAdminSecret = "operator-secret"

type testEnv struct {
	db     *gorm.DB
	node   *snowflake.Node
	credit creditdomain.Service
	svc    paymentdomain.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&paymentdomain.CreditPackage{},
		&paymentdomain.EventRecord{},
		&creditdomain.CreditBalance{},
		&creditdomain.CreditTransaction{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	creditSvc := creditservice.New(creditservice.Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Clock:  fake,
		Repo:   creditrepository.Provide(),
		Policy: &config.CreditPolicyHolder{},
	})

	cfg := config.Config{
		AdminAPISecret: testAdminSecret,
		Payment:        config.PaymentConfig{Provider: "manual"},
	}

	svc := New(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Repo:     repository.Provide(),
		Credit:   creditSvc,
		Registry: adapters.NewRegistry(manual.NewFactory()),
		Cfg:      cfg,
	})

	return &testEnv{db: db, node: node, credit: creditSvc, svc: svc}
}

func (e *testEnv) createPackage(t *testing.T, code string, credits, bonus, priceCents int64, active bool) int64 {
	t.Helper()
	pkg := &paymentdomain.CreditPackage{
		ID:           e.node.Generate().Int64(),
		Code:         code,
		Name:         code,
		Credits:      credits,
		BonusCredits: bonus,
		PriceCents:   priceCents,
		Currency:     "IDR",
		Active:       active,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, e.db.Create(pkg).Error)
	return pkg.ID
}

func (e *testEnv) balance(t *testing.T, schoolID int64) int64 {
	t.Helper()
	balance, err := e.credit.GetBalance(context.Background(), creditdomain.Scope{
		Type: creditdomain.ScopeSchool,
		ID:   schoolID,
	})
	require.NoError(t, err)
	return balance.CurrentCredits
}

func webhookHeaders(secret string) http.Header {
	headers := http.Header{}
	headers.Set("X-Admin-Secret", secret)
	return headers
}

func confirmationPayload(eventID, orderID, status string) []byte {
	return []byte(fmt.Sprintf(`{"event_id":%q,"order_id":%q,"status":%q}`, eventID, orderID, status))
}

func TestListPackagesReturnsActiveOnly(t *testing.T) {
	env := newTestEnv(t)
	env.createPackage(t, "starter", 50, 0, 5000000, true)
	env.createPackage(t, "legacy", 10, 0, 1000000, false)

	packages, err := env.svc.ListPackages(context.Background())
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, "starter", packages[0].Code)
}

func TestStartPurchaseOpensPendingTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pkgID := env.createPackage(t, "standard", 200, 20, 18000000, true)
	schoolID := env.node.Generate().Int64()

	resp, err := env.svc.StartPurchase(ctx, paymentdomain.PurchaseRequest{
		SchoolID:  schoolID,
		PackageID: pkgID,
	})
	require.NoError(t, err)
	assert.Equal(t, resp.TransactionID, resp.Reference)
	assert.Equal(t, int64(200), resp.Credits)
	assert.Equal(t, int64(20), resp.BonusCredits)
	assert.Equal(t, "IDR", resp.Currency)

	// Credits arrive only after gateway confirmation.
	assert.Zero(t, env.balance(t, schoolID))

	txID, err := snowflake.ParseString(resp.TransactionID)
	require.NoError(t, err)
	tx, err := env.credit.MarkTransaction(ctx, txID.Int64(), creditdomain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, string(creditdomain.TxPurchase), tx.Type)
}

func TestStartPurchaseUnknownOrInactivePackage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	schoolID := env.node.Generate().Int64()

	_, err := env.svc.StartPurchase(ctx, paymentdomain.PurchaseRequest{
		SchoolID:  schoolID,
		PackageID: env.node.Generate().Int64(),
	})
	assert.ErrorIs(t, err, paymentdomain.ErrPackageNotFound)

	retired := env.createPackage(t, "retired", 10, 0, 1000000, false)
	_, err = env.svc.StartPurchase(ctx, paymentdomain.PurchaseRequest{
		SchoolID:  schoolID,
		PackageID: retired,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrPackageNotFound)
}

func TestProcessEventSettlesPurchase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pkgID := env.createPackage(t, "standard", 200, 20, 18000000, true)
	schoolID := env.node.Generate().Int64()

	resp, err := env.svc.StartPurchase(ctx, paymentdomain.PurchaseRequest{
		SchoolID:  schoolID,
		PackageID: pkgID,
	})
	require.NoError(t, err)

	payload := confirmationPayload("evt-1", resp.TransactionID, "paid")
	err = env.svc.ProcessEvent(ctx, "manual", payload, webhookHeaders(testAdminSecret))
	require.NoError(t, err)

	assert.Equal(t, int64(220), env.balance(t, schoolID))
}

func TestProcessEventReplayIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pkgID := env.createPackage(t, "starter", 50, 0, 5000000, true)
	schoolID := env.node.Generate().Int64()

	resp, err := env.svc.StartPurchase(ctx, paymentdomain.PurchaseRequest{
		SchoolID:  schoolID,
		PackageID: pkgID,
	})
	require.NoError(t, err)

	payload := confirmationPayload("evt-1", resp.TransactionID, "paid")
	require.NoError(t, env.svc.ProcessEvent(ctx, "manual", payload, webhookHeaders(testAdminSecret)))

	err = env.svc.ProcessEvent(ctx, "manual", payload, webhookHeaders(testAdminSecret))
	assert.ErrorIs(t, err, paymentdomain.ErrEventAlreadyProcessed)

	// A second confirmation under a fresh event id must not deposit either.
	err = env.svc.ProcessEvent(ctx, "manual",
		confirmationPayload("evt-2", resp.TransactionID, "paid"),
		webhookHeaders(testAdminSecret))
	assert.ErrorIs(t, err, paymentdomain.ErrEventAlreadyProcessed)

	assert.Equal(t, int64(50), env.balance(t, schoolID))
}

func TestProcessEventFailedPaymentNeverDeposits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pkgID := env.createPackage(t, "starter", 50, 0, 5000000, true)
	schoolID := env.node.Generate().Int64()

	resp, err := env.svc.StartPurchase(ctx, paymentdomain.PurchaseRequest{
		SchoolID:  schoolID,
		PackageID: pkgID,
	})
	require.NoError(t, err)

	payload := confirmationPayload("evt-1", resp.TransactionID, "failed")
	require.NoError(t, env.svc.ProcessEvent(ctx, "manual", payload, webhookHeaders(testAdminSecret)))

	assert.Zero(t, env.balance(t, schoolID))

	// The order is now terminal; a late confirmation is a replay.
	err = env.svc.ProcessEvent(ctx, "manual",
		confirmationPayload("evt-2", resp.TransactionID, "paid"),
		webhookHeaders(testAdminSecret))
	assert.ErrorIs(t, err, paymentdomain.ErrEventAlreadyProcessed)
}

func TestProcessEventRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)

	payload := confirmationPayload("evt-1", "12345", "paid")
	err := env.svc.ProcessEvent(context.Background(), "manual", payload, webhookHeaders("wrong"))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	err = env.svc.ProcessEvent(context.Background(), "manual", payload, http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
}

func TestProcessEventValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.svc.ProcessEvent(ctx, "paypal", confirmationPayload("evt-1", "1", "paid"), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrProviderNotFound)

	err = env.svc.ProcessEvent(ctx, "manual", []byte("not json"), webhookHeaders(testAdminSecret))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)

	err = env.svc.ProcessEvent(ctx, "manual",
		confirmationPayload("evt-1", "", "paid"), webhookHeaders(testAdminSecret))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidEvent)

	err = env.svc.ProcessEvent(ctx, "manual",
		confirmationPayload("evt-1", "not-a-number", "paid"), webhookHeaders(testAdminSecret))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidOrder)

	err = env.svc.ProcessEvent(ctx, "manual",
		confirmationPayload("evt-2", fmt.Sprint(env.node.Generate().Int64()), "paid"),
		webhookHeaders(testAdminSecret))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidOrder)
}
