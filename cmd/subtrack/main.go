package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/subtrack/internal/billing"
	"github.com/smallbiznis/subtrack/internal/billingrun"
	"github.com/smallbiznis/subtrack/internal/clock"
	"github.com/smallbiznis/subtrack/internal/config"
	"github.com/smallbiznis/subtrack/internal/jobqueue"
	"github.com/smallbiznis/subtrack/internal/migration"
	"github.com/smallbiznis/subtrack/internal/observability"
	"github.com/smallbiznis/subtrack/internal/server"
	"github.com/smallbiznis/subtrack/internal/subscription"
	"github.com/smallbiznis/subtrack/internal/webhook"
	"github.com/smallbiznis/subtrack/internal/webhookdispatch"
	"github.com/smallbiznis/subtrack/pkg/db"
	"go.uber.org/fx"
)

// Monolith: HTTP API, billing scheduler, and queue workers in one
// process. Deployments that need to scale consumers separately use
// apps/api and apps/worker instead.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		subscription.Module,
		webhook.Module,
		billing.Module,

		jobqueue.Module,
		webhookdispatch.Module,
		billingrun.Module,
		fx.Invoke(jobqueue.Run),

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
