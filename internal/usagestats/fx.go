package usagestats

import (
	"github.com/edukita/kertas/internal/usagestats/repository"
	"github.com/edukita/kertas/internal/usagestats/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usagestats.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
