package payments

import (
	"go.uber.org/fx"

	"github.com/edukita/kertas/internal/payments/adapters"
	"github.com/edukita/kertas/internal/payments/adapters/manual"
	"github.com/edukita/kertas/internal/payments/adapters/midtrans"
	"github.com/edukita/kertas/internal/payments/repository"
	"github.com/edukita/kertas/internal/payments/service"
)

var Module = fx.Module("payments.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			midtrans.NewFactory(),
			manual.NewFactory(),
		)
	}),
	fx.Provide(service.New),
)
