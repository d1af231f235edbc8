package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/nivala/pricing/internal/analytics"
	"github.com/nivala/pricing/internal/audit"
	"github.com/nivala/pricing/internal/clock"
	"github.com/nivala/pricing/internal/config"
	"github.com/nivala/pricing/internal/migration"
	"github.com/nivala/pricing/internal/observability"
	"github.com/nivala/pricing/internal/offering"
	"github.com/nivala/pricing/internal/pricing"
	"github.com/nivala/pricing/internal/ratelimit"
	"github.com/nivala/pricing/internal/recommendation"
	"github.com/nivala/pricing/internal/scheduler"
	"github.com/nivala/pricing/pkg/db"
	"go.uber.org/fx"
)

// Standalone analysis worker. Runs the nightly cycle on a ticker and never
// serves HTTP.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Domain services the cycle touches.
		offering.Module,
		pricing.Module,
		analytics.Module,
		recommendation.Module,
		audit.Module,
		ratelimit.Module,

		scheduler.RunModule,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
