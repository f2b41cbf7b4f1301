package generation

import (
	"github.com/edukita/kertas/internal/generation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("generation.service",
	fx.Provide(service.New),
)
