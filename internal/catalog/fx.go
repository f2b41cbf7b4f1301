package catalog

import (
	"github.com/edukita/kertas/internal/catalog/repository"
	"github.com/edukita/kertas/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
