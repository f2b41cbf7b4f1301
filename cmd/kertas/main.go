package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/edukita/kertas/internal/config"
	"github.com/edukita/kertas/internal/migration"
	"github.com/edukita/kertas/internal/observability"
	"github.com/edukita/kertas/internal/scheduler"
	"github.com/edukita/kertas/internal/server"
	"github.com/edukita/kertas/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
