package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/edukita/kertas/internal/audit/domain"
	"github.com/edukita/kertas/internal/clock"
	"github.com/edukita/kertas/internal/config"
	"github.com/edukita/kertas/internal/credit/domain"
	"github.com/edukita/kertas/internal/observability/metrics"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Policy  *config.CreditPolicyHolder
	Audit   auditdomain.Service
	Metrics *metrics.Metrics
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	genID   *snowflake.Node
	clock   clock.Clock
	policy  *config.CreditPolicyHolder
	audit   auditdomain.Service
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("credit.service"),
		repo:    p.Repo,
		genID:   p.GenID,
		clock:   p.Clock,
		policy:  p.Policy,
		audit:   p.Audit,
		metrics: p.Metrics,
	}
}

func (s *Service) GetBalance(ctx context.Context, scope domain.Scope) (*domain.BalanceResponse, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	balance, err := s.repo.FindBalance(ctx, s.db, scope.Type, scope.ID)
	if err != nil {
		return nil, err
	}

	resp := &domain.BalanceResponse{
		ScopeType: scope.Type,
		ScopeID:   strconv.FormatInt(scope.ID, 10),
	}
	if balance != nil {
		resp.CurrentCredits = balance.CurrentCredits
		resp.BonusCredits = balance.BonusCredits
		resp.UsedCredits = balance.UsedCredits
	}
	if warn := s.policy.Current().LowBalanceWarning; warn > 0 && resp.CurrentCredits <= warn {
		resp.LowBalance = true
	}
	return resp, nil
}

func (s *Service) ReserveAndDebit(ctx context.Context, req domain.DebitRequest) (*domain.TransactionResponse, error) {
	if err := validateScope(req.Scope); err != nil {
		return nil, err
	}
	if req.Credits < 0 {
		return nil, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	tx := &domain.CreditTransaction{
		ID:          s.genID.Generate().Int64(),
		ScopeType:   req.Scope.Type,
		ScopeID:     req.Scope.ID,
		Type:        string(domain.TxUsage),
		Status:      string(domain.StatusCompleted),
		Credits:     req.Credits,
		Currency:    "IDR",
		Reason:      strings.TrimSpace(req.Reason),
		CreatedAt:   now,
		CompletedAt: &now,
	}
	if req.ReferenceType != "" {
		refType := req.ReferenceType
		refID := req.ReferenceID
		tx.ReferenceType = &refType
		tx.ReferenceID = &refID
	}

	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		if req.Credits > 0 {
			affected, err := s.repo.DebitBalance(ctx, dbtx, req.Scope.Type, req.Scope.ID, req.Credits, now)
			if err != nil {
				return err
			}
			if affected == 0 {
				return domain.ErrInsufficientCredits
			}
		}
		return s.repo.InsertTransaction(ctx, dbtx, tx)
	})
	if err != nil {
		return nil, err
	}

	s.recordMetric(ctx, string(domain.TxUsage), string(domain.StatusCompleted))
	resp := toTransactionResponse(tx)
	return &resp, nil
}

func (s *Service) Credit(ctx context.Context, req domain.CreditRequest) (*domain.TransactionResponse, error) {
	if err := validateScope(req.Scope); err != nil {
		return nil, err
	}
	if req.Credits <= 0 || req.Bonus < 0 {
		return nil, domain.ErrInvalidAmount
	}
	txType := req.Type
	if txType == "" {
		txType = domain.TxGrant
	}

	now := s.clock.Now()
	tx := &domain.CreditTransaction{
		ID:           s.genID.Generate().Int64(),
		ScopeType:    req.Scope.Type,
		ScopeID:      req.Scope.ID,
		Type:         string(txType),
		Status:       string(domain.StatusCompleted),
		Credits:      req.Credits,
		BonusCredits: req.Bonus,
		Currency:     "IDR",
		Reason:       strings.TrimSpace(req.Reason),
		CreatedAt:    now,
		CompletedAt:  &now,
	}

	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		if err := s.deposit(ctx, dbtx, req.Scope, req.Credits+req.Bonus, req.Bonus, now); err != nil {
			return err
		}
		return s.repo.InsertTransaction(ctx, dbtx, tx)
	})
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, "credit.deposit", req.Scope, tx.ID, map[string]any{
		"credits": req.Credits,
		"bonus":   req.Bonus,
		"type":    string(txType),
	})
	s.recordMetric(ctx, string(txType), string(domain.StatusCompleted))
	resp := toTransactionResponse(tx)
	return &resp, nil
}

func (s *Service) CreatePendingPurchase(ctx context.Context, req domain.PurchaseRequest) (*domain.TransactionResponse, error) {
	if err := validateScope(req.Scope); err != nil {
		return nil, err
	}
	if req.Credits <= 0 || req.Bonus < 0 || req.AmountCents < 0 {
		return nil, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "IDR"
	}

	now := s.clock.Now()
	tx := &domain.CreditTransaction{
		ID:           s.genID.Generate().Int64(),
		ScopeType:    req.Scope.Type,
		ScopeID:      req.Scope.ID,
		Type:         string(domain.TxPurchase),
		Status:       string(domain.StatusPending),
		Credits:      req.Credits,
		BonusCredits: req.Bonus,
		AmountCents:  req.AmountCents,
		Currency:     currency,
		Reason:       "credit package purchase",
		CreatedAt:    now,
	}
	if ref := strings.TrimSpace(req.Reference); ref != "" {
		tx.Reference = &ref
	}
	if req.PackageID != 0 {
		packageID := req.PackageID
		tx.PackageID = &packageID
	}

	if err := s.repo.InsertTransaction(ctx, s.db, tx); err != nil {
		return nil, err
	}

	s.recordMetric(ctx, string(domain.TxPurchase), string(domain.StatusPending))
	resp := toTransactionResponse(tx)
	return &resp, nil
}

func (s *Service) MarkTransaction(ctx context.Context, id int64, status domain.TransactionStatus) (*domain.TransactionResponse, error) {
	switch status {
	case domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled:
	default:
		return nil, domain.ErrInvalidStatus
	}

	tx, err := s.repo.FindTransaction(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.ErrTransactionNotFound
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		// The guarded update decides the winner of concurrent confirmations;
		// the deposit below only runs for the winner.
		affected, err := s.repo.MarkTransaction(ctx, dbtx, id, string(status), now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrTransactionFinal
		}
		if status == domain.StatusCompleted && tx.Type == string(domain.TxPurchase) {
			scope := domain.Scope{Type: tx.ScopeType, ID: tx.ScopeID}
			return s.deposit(ctx, dbtx, scope, tx.Credits+tx.BonusCredits, tx.BonusCredits, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tx.Status = string(status)
	tx.CompletedAt = &now

	s.writeAudit(ctx, "credit.transaction."+string(status), domain.Scope{Type: tx.ScopeType, ID: tx.ScopeID}, tx.ID, map[string]any{
		"type":    tx.Type,
		"credits": tx.Credits,
	})
	s.recordMetric(ctx, tx.Type, string(status))
	resp := toTransactionResponse(tx)
	return &resp, nil
}

func (s *Service) Refund(ctx context.Context, req domain.RefundRequest) (*domain.TransactionResponse, error) {
	if err := validateScope(req.Scope); err != nil {
		return nil, err
	}
	if req.Credits <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	tx := &domain.CreditTransaction{
		ID:          s.genID.Generate().Int64(),
		ScopeType:   req.Scope.Type,
		ScopeID:     req.Scope.ID,
		Type:        string(domain.TxRefund),
		Status:      string(domain.StatusCompleted),
		Credits:     req.Credits,
		Currency:    "IDR",
		Reason:      strings.TrimSpace(req.Reason),
		CreatedAt:   now,
		CompletedAt: &now,
	}
	if req.ReferenceType != "" {
		refType := req.ReferenceType
		refID := req.ReferenceID
		tx.ReferenceType = &refType
		tx.ReferenceID = &refID
	}

	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		if err := s.deposit(ctx, dbtx, req.Scope, req.Credits, 0, now); err != nil {
			return err
		}
		return s.repo.InsertTransaction(ctx, dbtx, tx)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("credits refunded",
		zap.Int64("scope_id", req.Scope.ID),
		zap.Int64("credits", req.Credits),
		zap.String("reason", tx.Reason),
	)
	s.recordMetric(ctx, string(domain.TxRefund), string(domain.StatusCompleted))
	resp := toTransactionResponse(tx)
	return &resp, nil
}

func (s *Service) ListTransactions(ctx context.Context, scope domain.Scope, limit int) ([]domain.TransactionResponse, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	items, err := s.repo.ListTransactions(ctx, s.db, scope.Type, scope.ID, limit)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.TransactionResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toTransactionResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) deposit(ctx context.Context, dbtx *gorm.DB, scope domain.Scope, credits, bonus int64, now time.Time) error {
	return s.repo.AddToBalance(ctx, dbtx, &domain.CreditBalance{
		ID:             s.genID.Generate().Int64(),
		ScopeType:      scope.Type,
		ScopeID:        scope.ID,
		CurrentCredits: credits,
		BonusCredits:   bonus,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (s *Service) writeAudit(ctx context.Context, action string, scope domain.Scope, txID int64, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	targetID := strconv.FormatInt(txID, 10)
	metadata["scope_type"] = scope.Type
	metadata["scope_id"] = strconv.FormatInt(scope.ID, 10)
	if err := s.audit.AuditLog(ctx, nil, "", nil, action, "credit_transaction", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) recordMetric(ctx context.Context, txType, status string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCreditTransaction(ctx, txType, status)
}

func validateScope(scope domain.Scope) error {
	if strings.TrimSpace(scope.Type) == "" || scope.ID == 0 {
		return domain.ErrInvalidScope
	}
	return nil
}

func toTransactionResponse(tx *domain.CreditTransaction) domain.TransactionResponse {
	resp := domain.TransactionResponse{
		ID:          strconv.FormatInt(tx.ID, 10),
		ScopeType:   tx.ScopeType,
		ScopeID:     strconv.FormatInt(tx.ScopeID, 10),
		Type:        tx.Type,
		Status:      tx.Status,
		Credits:     tx.Credits,
		Bonus:       tx.BonusCredits,
		AmountCents: tx.AmountCents,
		Currency:    tx.Currency,
		Reason:      tx.Reason,
		Reference:   tx.Reference,
		CreatedAt:   tx.CreatedAt,
		CompletedAt: tx.CompletedAt,
	}
	if tx.PackageID != nil {
		packageID := strconv.FormatInt(*tx.PackageID, 10)
		resp.PackageID = &packageID
	}
	return resp
}
