package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/dinehq/dinehq/internal/clock"
	"github.com/dinehq/dinehq/internal/config"
	"github.com/dinehq/dinehq/internal/migration"
	"github.com/dinehq/dinehq/internal/observability"
	"github.com/dinehq/dinehq/internal/server"
	"github.com/dinehq/dinehq/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
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
