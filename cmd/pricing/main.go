package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/nivala/pricing/internal/clock"
	"github.com/nivala/pricing/internal/migration"
	"github.com/nivala/pricing/internal/observability"
	"github.com/nivala/pricing/internal/server"
	"github.com/nivala/pricing/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
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
