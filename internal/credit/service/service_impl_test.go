package service

import (
	"context"
	"fmt"
	"sync"
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
	"github.com/edukita/kertas/internal/credit/domain"
	"github.com/edukita/kertas/internal/credit/repository"
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

	require.NoError(t, db.AutoMigrate(
		&domain.CreditBalance{},
		&domain.CreditTransaction{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fake,
		Repo:   repository.Provide(),
		Policy: &config.CreditPolicyHolder{},
	})

	return &testEnv{db: db, node: node, clock: fake, svc: svc}
}

func (e *testEnv) schoolScope() domain.Scope {
	return domain.Scope{Type: domain.ScopeSchool, ID: e.node.Generate().Int64()}
}

func (e *testEnv) grant(t *testing.T, scope domain.Scope, credits, bonus int64) {
	t.Helper()
	_, err := e.svc.Credit(context.Background(), domain.CreditRequest{
		Scope:   scope,
		Credits: credits,
		Bonus:   bonus,
		Type:    domain.TxGrant,
		Reason:  "test grant",
	})
	require.NoError(t, err)
}

func TestGetBalanceDefaultsToZero(t *testing.T) {
	env := newTestEnv(t)
	scope := env.schoolScope()

	balance, err := env.svc.GetBalance(context.Background(), scope)
	require.NoError(t, err)
	assert.Zero(t, balance.CurrentCredits)
	assert.Zero(t, balance.UsedCredits)
	assert.True(t, balance.LowBalance)
}

func TestCreditDepositsAndClearsLowBalance(t *testing.T) {
	env := newTestEnv(t)
	scope := env.schoolScope()

	env.grant(t, scope, 100, 10)

	balance, err := env.svc.GetBalance(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, int64(110), balance.CurrentCredits)
	assert.Equal(t, int64(10), balance.BonusCredits)
	assert.False(t, balance.LowBalance)
}

func TestReserveAndDebit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.schoolScope()
	env.grant(t, scope, 10, 0)

	resp, err := env.svc.ReserveAndDebit(ctx, domain.DebitRequest{
		Scope:         scope,
		Credits:       4,
		Reason:        "document generation",
		ReferenceType: "generated_document",
		ReferenceID:   env.node.Generate().Int64(),
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.TxUsage), resp.Type)
	assert.Equal(t, string(domain.StatusCompleted), resp.Status)

	balance, err := env.svc.GetBalance(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, int64(6), balance.CurrentCredits)
	assert.Equal(t, int64(4), balance.UsedCredits)
}

func TestReserveAndDebitShortfallWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.schoolScope()
	env.grant(t, scope, 3, 0)

	_, err := env.svc.ReserveAndDebit(ctx, domain.DebitRequest{
		Scope:   scope,
		Credits: 5,
		Reason:  "document generation",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)

	balance, err := env.svc.GetBalance(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance.CurrentCredits)
	assert.Zero(t, balance.UsedCredits)

	txs, err := env.svc.ListTransactions(ctx, scope, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1) // only the grant
	assert.Equal(t, string(domain.TxGrant), txs[0].Type)
}

func TestReserveAndDebitZeroCostStillRecordsUsage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.schoolScope()

	resp, err := env.svc.ReserveAndDebit(ctx, domain.DebitRequest{
		Scope:   scope,
		Credits: 0,
		Reason:  "free document",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusCompleted), resp.Status)

	balance, err := env.svc.GetBalance(ctx, scope)
	require.NoError(t, err)
	assert.Zero(t, balance.CurrentCredits)
}

func TestConcurrentDebitsNeverOverspend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.schoolScope()
	env.grant(t, scope, 5, 0)

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.ReserveAndDebit(ctx, domain.DebitRequest{
				Scope:   scope,
				Credits: 1,
				Reason:  "concurrent debit",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, refused := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, domain.ErrInsufficientCredits):
			refused++
		}
	}
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, attempts-5, refused)

	balance, err := env.svc.GetBalance(ctx, scope)
	require.NoError(t, err)
	assert.Zero(t, balance.CurrentCredits)
	assert.Equal(t, int64(5), balance.UsedCredits)
}

func TestPendingPurchaseDepositsOnlyOnCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.schoolScope()

	pending, err := env.svc.CreatePendingPurchase(ctx, domain.PurchaseRequest{
		Scope:       scope,
		Credits:     200,
		Bonus:       20,
		AmountCents: 18000000,
		Currency:    "idr",
		Reference:   "ORDER-123",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusPending), pending.Status)
	assert.Equal(t, "IDR", pending.Currency)

	balance, err := env.svc.GetBalance(ctx, scope)
	require.NoError(t, err)
	assert.Zero(t, balance.CurrentCredits)

	id, err := snowflake.ParseString(pending.ID)
	require.NoError(t, err)

	completed, err := env.svc.MarkTransaction(ctx, id.Int64(), domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusCompleted), completed.Status)

	balance, err = env.svc.GetBalance(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, int64(220), balance.CurrentCredits)
	assert.Equal(t, int64(20), balance.BonusCredits)
}

func TestMarkTransactionIsFinal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.schoolScope()

	pending, err := env.svc.CreatePendingPurchase(ctx, domain.PurchaseRequest{
		Scope:       scope,
		Credits:     50,
		AmountCents: 5000000,
	})
	require.NoError(t, err)
	id, err := snowflake.ParseString(pending.ID)
	require.NoError(t, err)

	_, err = env.svc.MarkTransaction(ctx, id.Int64(), domain.StatusCompleted)
	require.NoError(t, err)

	// A replayed confirmation must not deposit again.
	_, err = env.svc.MarkTransaction(ctx, id.Int64(), domain.StatusCompleted)
	assert.ErrorIs(t, err, domain.ErrTransactionFinal)

	_, err = env.svc.MarkTransaction(ctx, id.Int64(), domain.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrTransactionFinal)

	balance, err := env.svc.GetBalance(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance.CurrentCredits)
}

func TestCancelledPurchaseNeverDeposits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.schoolScope()

	pending, err := env.svc.CreatePendingPurchase(ctx, domain.PurchaseRequest{
		Scope:       scope,
		Credits:     50,
		AmountCents: 5000000,
	})
	require.NoError(t, err)
	id, err := snowflake.ParseString(pending.ID)
	require.NoError(t, err)

	cancelled, err := env.svc.MarkTransaction(ctx, id.Int64(), domain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusCancelled), cancelled.Status)

	balance, err := env.svc.GetBalance(ctx, scope)
	require.NoError(t, err)
	assert.Zero(t, balance.CurrentCredits)
}

func TestMarkTransactionValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.MarkTransaction(ctx, env.node.Generate().Int64(), domain.StatusCompleted)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	_, err = env.svc.MarkTransaction(ctx, 1, domain.StatusPending)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestRefundRestoresBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.schoolScope()
	env.grant(t, scope, 10, 0)

	_, err := env.svc.ReserveAndDebit(ctx, domain.DebitRequest{
		Scope:   scope,
		Credits: 4,
		Reason:  "document generation",
	})
	require.NoError(t, err)

	refund, err := env.svc.Refund(ctx, domain.RefundRequest{
		Scope:         scope,
		Credits:       4,
		Reason:        "generation failed after debit",
		ReferenceType: "generated_document",
		ReferenceID:   env.node.Generate().Int64(),
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.TxRefund), refund.Type)

	balance, err := env.svc.GetBalance(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance.CurrentCredits)
}

func TestListTransactionsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.schoolScope()

	env.grant(t, scope, 10, 0)
	env.clock.Advance(time.Minute)
	_, err := env.svc.ReserveAndDebit(ctx, domain.DebitRequest{
		Scope:   scope,
		Credits: 2,
		Reason:  "document generation",
	})
	require.NoError(t, err)

	txs, err := env.svc.ListTransactions(ctx, scope, 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, string(domain.TxUsage), txs[0].Type)
	assert.Equal(t, string(domain.TxGrant), txs[1].Type)

	limited, err := env.svc.ListTransactions(ctx, scope, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestInvalidRequests(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.schoolScope()

	_, err := env.svc.GetBalance(ctx, domain.Scope{})
	assert.ErrorIs(t, err, domain.ErrInvalidScope)

	_, err = env.svc.ReserveAndDebit(ctx, domain.DebitRequest{Scope: scope, Credits: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = env.svc.Credit(ctx, domain.CreditRequest{Scope: scope, Credits: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = env.svc.CreatePendingPurchase(ctx, domain.PurchaseRequest{Scope: scope, Credits: 10, Bonus: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = env.svc.Refund(ctx, domain.RefundRequest{Scope: scope, Credits: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}
