package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	documentsGenerated metric.Int64Counter
	generationDenied   metric.Int64Counter
	creditTransactions metric.Int64Counter
	paymentEvents      metric.Int64Counter
	permissionUpdates  metric.Int64Counter
	rateLimitAllowed   metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "kertas"
	}
	meter := provider.Meter(name)

	documentsGenerated, err := meter.Int64Counter("kertas_documents_generated_total")
	if err != nil {
		return nil, err
	}
	generationDenied, err := meter.Int64Counter("kertas_generation_denied_total")
	if err != nil {
		return nil, err
	}
	creditTransactions, err := meter.Int64Counter("kertas_credit_transactions_total")
	if err != nil {
		return nil, err
	}
	paymentEvents, err := meter.Int64Counter("kertas_payment_events_total")
	if err != nil {
		return nil, err
	}
	permissionUpdates, err := meter.Int64Counter("kertas_permission_updates_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("kertas_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("kertas_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		documentsGenerated: documentsGenerated,
		generationDenied:   generationDenied,
		creditTransactions: creditTransactions,
		paymentEvents:      paymentEvents,
		permissionUpdates:  permissionUpdates,
		rateLimitAllowed:   rateLimitAllowed,
		rateLimitDenied:    rateLimitDenied,
	}, nil
}

// RecordDocumentGenerated increments successful generation counts.
func (m *Metrics) RecordDocumentGenerated(ctx context.Context, category string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("category", strings.TrimSpace(category)))
	m.documentsGenerated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGenerationDenied increments denied generation counts.
func (m *Metrics) RecordGenerationDenied(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.generationDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCreditTransaction increments credit transaction counts.
func (m *Metrics) RecordCreditTransaction(ctx context.Context, txType, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("tx_type", strings.TrimSpace(txType)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.creditTransactions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPaymentEvent increments payment event counts.
func (m *Metrics) RecordPaymentEvent(ctx context.Context, provider, eventType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("event_type", strings.TrimSpace(eventType)),
	)
	m.paymentEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPermissionUpdate increments permission write counts.
func (m *Metrics) RecordPermissionUpdate(ctx context.Context, scope, operation string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("scope", strings.TrimSpace(scope)),
		attribute.String("operation", strings.TrimSpace(operation)),
	)
	m.permissionUpdates.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, schoolID, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("school_id", strings.TrimSpace(schoolID)),
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
	)
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, schoolID, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("school_id", strings.TrimSpace(schoolID)),
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"school_id":   {},
	"endpoint":    {},
	"status_code": {},
	"category":    {},
	"tx_type":     {},
	"status":      {},
	"provider":    {},
	"event_type":  {},
	"scope":       {},
	"operation":   {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
