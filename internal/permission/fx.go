package permission

import (
	"github.com/edukita/kertas/internal/permission/repository"
	"github.com/edukita/kertas/internal/permission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("permission.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
