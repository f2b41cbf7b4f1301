package credit

import (
	"github.com/edukita/kertas/internal/credit/repository"
	"github.com/edukita/kertas/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
