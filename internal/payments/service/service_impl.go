package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditdomain "github.com/edukita/kertas/internal/audit/domain"
	"github.com/edukita/kertas/internal/audit/masking"
	"github.com/edukita/kertas/internal/clock"
	"github.com/edukita/kertas/internal/config"
	creditdomain "github.com/edukita/kertas/internal/credit/domain"
	"github.com/edukita/kertas/internal/observability/metrics"
	"github.com/edukita/kertas/internal/payments/adapters"
	paymentdomain "github.com/edukita/kertas/internal/payments/domain"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     paymentdomain.Repository
	Credit   creditdomain.Service
	Registry *adapters.Registry
	Cfg      config.Config
	Audit    auditdomain.Service
	Metrics  *metrics.Metrics
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     paymentdomain.Repository
	credit   creditdomain.Service
	registry *adapters.Registry
	cfg      config.Config
	audit    auditdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) paymentdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payments.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		credit:   p.Credit,
		registry: p.Registry,
		cfg:      p.Cfg,
		audit:    p.Audit,
		metrics:  p.Metrics,
	}
}

func (s *Service) ListPackages(ctx context.Context) ([]paymentdomain.PackageResponse, error) {
	items, err := s.repo.ListPackages(ctx, s.db, true)
	if err != nil {
		return nil, err
	}
	resp := make([]paymentdomain.PackageResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toPackageResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) StartPurchase(ctx context.Context, req paymentdomain.PurchaseRequest) (*paymentdomain.PurchaseResponse, error) {
	if req.SchoolID == 0 {
		return nil, creditdomain.ErrInvalidScope
	}

	pkg, err := s.repo.FindPackage(ctx, s.db, req.PackageID)
	if err != nil {
		return nil, err
	}
	if pkg == nil || !pkg.Active {
		return nil, paymentdomain.ErrPackageNotFound
	}

	adapter, err := s.adapterFor(s.cfg.Payment.Provider)
	if err != nil {
		return nil, err
	}

	tx, err := s.credit.CreatePendingPurchase(ctx, creditdomain.PurchaseRequest{
		Scope:       creditdomain.Scope{Type: creditdomain.ScopeSchool, ID: req.SchoolID},
		Credits:     pkg.Credits,
		Bonus:       pkg.BonusCredits,
		AmountCents: pkg.PriceCents,
		Currency:    pkg.Currency,
		PackageID:   pkg.ID,
	})
	if err != nil {
		return nil, err
	}

	checkout, err := adapter.CreateCheckout(ctx, paymentdomain.CheckoutRequest{
		OrderID:     tx.ID,
		AmountCents: pkg.PriceCents,
		Currency:    pkg.Currency,
		Description: pkg.Name,
		CallbackURL: s.cfg.Payment.CallbackBaseURL,
	})
	if err != nil {
		// The gateway never saw this order; close the pending transaction so
		// it cannot be confirmed later.
		s.cancelPending(ctx, tx.ID)
		return nil, err
	}

	return &paymentdomain.PurchaseResponse{
		TransactionID: tx.ID,
		Reference:     checkout.Reference,
		RedirectURL:   checkout.RedirectURL,
		Credits:       pkg.Credits,
		BonusCredits:  pkg.BonusCredits,
		AmountCents:   pkg.PriceCents,
		Currency:      pkg.Currency,
	}, nil
}

func (s *Service) ProcessEvent(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	adapter, err := s.adapterFor(provider)
	if err != nil {
		return err
	}

	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}
	if err := adapter.Verify(ctx, payload, headers); err != nil {
		return err
	}
	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	record := &paymentdomain.EventRecord{
		ID:              s.genID.Generate().Int64(),
		Provider:        provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		OrderID:         event.OrderID,
		AmountCents:     event.AmountCents,
		Currency:        event.Currency,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, record)
	if err != nil {
		return err
	}
	stored := record
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	if err := s.settle(ctx, event); err != nil {
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, now); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentEvent(ctx, provider, event.Type)
	}
	s.writeAudit(ctx, event, payload)
	return nil
}

func (s *Service) settle(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	txID, err := strconv.ParseInt(strings.TrimSpace(event.OrderID), 10, 64)
	if err != nil || txID == 0 {
		return paymentdomain.ErrInvalidOrder
	}

	var status creditdomain.TransactionStatus
	switch event.Type {
	case paymentdomain.EventTypePaymentSucceeded:
		status = creditdomain.StatusCompleted
	case paymentdomain.EventTypePaymentFailed:
		status = creditdomain.StatusFailed
	case paymentdomain.EventTypePaymentExpired:
		status = creditdomain.StatusCancelled
	default:
		return paymentdomain.ErrInvalidEvent
	}

	_, err = s.credit.MarkTransaction(ctx, txID, status)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, creditdomain.ErrTransactionFinal):
		// The ledger already settled this order; the event is a replay.
		return paymentdomain.ErrEventAlreadyProcessed
	case errors.Is(err, creditdomain.ErrTransactionNotFound):
		return paymentdomain.ErrInvalidOrder
	default:
		return err
	}
}

func (s *Service) adapterFor(provider string) (paymentdomain.PaymentAdapter, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	cfg := paymentdomain.AdapterConfig{Config: map[string]any{}}
	switch provider {
	case "midtrans":
		cfg.Config["server_key"] = s.cfg.Payment.MidtransServerKey
		cfg.Config["snap_url"] = s.cfg.Payment.MidtransSnapURL
	case "manual":
		cfg.Config["admin_secret"] = s.cfg.AdminAPISecret
	}
	return s.registry.NewAdapter(provider, cfg)
}

func (s *Service) cancelPending(ctx context.Context, txID string) {
	id, err := strconv.ParseInt(txID, 10, 64)
	if err != nil {
		return
	}
	if _, err := s.credit.MarkTransaction(ctx, id, creditdomain.StatusCancelled); err != nil {
		s.log.Warn("failed to cancel pending purchase", zap.String("transaction_id", txID), zap.Error(err))
	}
}

func (s *Service) writeAudit(ctx context.Context, event *paymentdomain.PaymentEvent, payload []byte) {
	if s.audit == nil {
		return
	}
	var parsed map[string]any
	_ = json.Unmarshal(payload, &parsed)
	metadata := map[string]any{
		"provider":   event.Provider,
		"event_type": event.Type,
		"payload":    masking.MaskPayload(parsed),
	}
	orderID := event.OrderID
	if err := s.audit.AuditLog(ctx, nil, string(auditdomain.ActorTypeSystem), nil, "payment.event", "payment", &orderID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func toPackageResponse(pkg *paymentdomain.CreditPackage) paymentdomain.PackageResponse {
	return paymentdomain.PackageResponse{
		ID:           strconv.FormatInt(pkg.ID, 10),
		Code:         pkg.Code,
		Name:         pkg.Name,
		Credits:      pkg.Credits,
		BonusCredits: pkg.BonusCredits,
		PriceCents:   pkg.PriceCents,
		Currency:     pkg.Currency,
		Active:       pkg.Active,
		CreatedAt:    pkg.CreatedAt,
	}
}
