package observability

import (
	"go.uber.org/fx"

	"github.com/edukita/kertas/internal/observability/logger"
	"github.com/edukita/kertas/internal/observability/metrics"
	"github.com/edukita/kertas/internal/observability/tracing"
)

// Module wires structured logging, tracing and metrics.
var Module = fx.Module("observability",
	fx.Provide(LoadConfig),
	fx.Provide(provideLoggerConfig),
	fx.Provide(logger.New),
	fx.Provide(provideTracingConfig),
	fx.Provide(tracing.NewProvider),
	fx.Provide(provideMetricsConfig),
	fx.Provide(metrics.NewProvider),
	fx.Provide(metrics.New),
	fx.Provide(metrics.NewHTTPMetrics),
)

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Debug:       cfg.Debug(),
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}
