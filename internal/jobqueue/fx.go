package jobqueue

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("jobqueue",
	fx.Provide(NewRedisClient),
	fx.Provide(NewQueue),
)

// Run starts the queue workers once every handler module has registered.
func Run(lc fx.Lifecycle, queue *Queue) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			queue.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			queue.Stop()
			return nil
		},
	})
}
