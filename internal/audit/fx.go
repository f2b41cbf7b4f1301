package audit

import (
	"github.com/edukita/kertas/internal/audit/repository"
	"github.com/edukita/kertas/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
