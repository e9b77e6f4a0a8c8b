package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteflow/internal/clock"
	"github.com/smallbiznis/quoteflow/internal/config"
	"github.com/smallbiznis/quoteflow/internal/migration"
	"github.com/smallbiznis/quoteflow/internal/observability"
	"github.com/smallbiznis/quoteflow/internal/scheduler"
	"github.com/smallbiznis/quoteflow/internal/seed"
	"github.com/smallbiznis/quoteflow/internal/server"
	"github.com/smallbiznis/quoteflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP API and background jobs
		server.Module,
		scheduler.Module,
		seed.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
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
