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

// The api binary serves the HTTP surface only. Job workers and the
// billing scheduler run in apps/worker.
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

		// The workers consume these queues in apps/worker; the api only
		// inspects them, so it observes the names without handlers.
		fx.Invoke(func(q *jobqueue.Queue) {
			q.ObserveQueue(billingrun.QueueName)
			q.ObserveQueue(webhookdispatch.QueueName)
		}),

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
