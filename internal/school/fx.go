package school

import (
	"github.com/edukita/kertas/internal/school/repository"
	"github.com/edukita/kertas/internal/school/service"
	"go.uber.org/fx"
)

var Module = fx.Module("school.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
