package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edukita/kertas/internal/clock"
	"github.com/edukita/kertas/internal/config"
	creditdomain "github.com/edukita/kertas/internal/credit/domain"
)

var ErrInvalidConfig = errors.New("scheduler configuration is incomplete")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	CreditSvc creditdomain.Service
	Clock     clock.Clock
	Policy    *config.CreditPolicyHolder
	Config    Config `optional:"true"`
}

// Scheduler runs periodic maintenance. Its only job today is cancelling
// purchase transactions the gateway never confirmed.
type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	creditSvc creditdomain.Service
	policy    *config.CreditPolicyHolder
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.CreditSvc == nil || p.Clock == nil || p.Policy == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		creditSvc: p.CreditSvc,
		policy:    p.Policy,
	}, nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes one scheduler pass. Exposed for tests.
func (s *Scheduler) RunOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	if err := s.ExpirePendingPurchases(ctx); err != nil {
		s.log.Warn("expire pending purchases failed", zap.Error(err))
	}
}

// ExpirePendingPurchases cancels purchase transactions that stayed pending
// past the configured TTL. The guarded status update makes a race with a
// late webhook settle exactly one way.
func (s *Scheduler) ExpirePendingPurchases(ctx context.Context) error {
	ttlHours := s.policy.Current().PendingPurchaseTTLHours
	if ttlHours <= 0 {
		return nil
	}
	cutoff := s.clock.Now().Add(-time.Duration(ttlHours) * time.Hour)

	ids, err := s.fetchStalePendingPurchases(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, id := range ids {
		_, err := s.creditSvc.MarkTransaction(ctx, id, creditdomain.StatusCancelled)
		if err != nil {
			if errors.Is(err, creditdomain.ErrTransactionFinal) {
				continue
			}
			s.log.Warn("cancel stale purchase failed",
				zap.Int64("transaction_id", id),
				zap.Error(err),
			)
			continue
		}
		s.log.Info("cancelled stale pending purchase",
			zap.Int64("transaction_id", id),
		)
	}
	return nil
}

func (s *Scheduler) fetchStalePendingPurchases(ctx context.Context, cutoff time.Time, limit int) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Raw(`
		SELECT id
		FROM credit_transactions
		WHERE type = ? AND status = ? AND created_at < ?
		ORDER BY created_at ASC
		LIMIT ?
	`, string(creditdomain.TxPurchase), string(creditdomain.StatusPending), cutoff, limit).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
