package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/urbanease/urbanease/internal/clock"
	"github.com/urbanease/urbanease/internal/config"
	"github.com/urbanease/urbanease/internal/migration"
	"github.com/urbanease/urbanease/internal/observability"
	"github.com/urbanease/urbanease/internal/server"
	"github.com/urbanease/urbanease/pkg/db"
	"go.uber.org/fx"
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
