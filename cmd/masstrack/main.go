package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/masstrack/internal/auth"
	"github.com/smallbiznis/masstrack/internal/authorization"
	"github.com/smallbiznis/masstrack/internal/bulkintention"
	"github.com/smallbiznis/masstrack/internal/celebration"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	"github.com/smallbiznis/masstrack/internal/dashboard"
	"github.com/smallbiznis/masstrack/internal/intention"
	"github.com/smallbiznis/masstrack/internal/migration"
	"github.com/smallbiznis/masstrack/internal/notification"
	"github.com/smallbiznis/masstrack/internal/obligation"
	"github.com/smallbiznis/masstrack/internal/observability"
	"github.com/smallbiznis/masstrack/internal/ratelimit"
	"github.com/smallbiznis/masstrack/internal/report"
	"github.com/smallbiznis/masstrack/internal/scheduler"
	"github.com/smallbiznis/masstrack/internal/seed"
	"github.com/smallbiznis/masstrack/internal/server"
	"github.com/smallbiznis/masstrack/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,
		migration.Module,

		// Domains
		authorization.Module,
		auth.Module,
		intention.Module,
		bulkintention.Module,
		obligation.Module,
		notification.Module,
		celebration.Module,
		dashboard.Module,
		report.Module,

		seed.Module,
		scheduler.Module,
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
