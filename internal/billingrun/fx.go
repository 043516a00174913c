package billingrun

import "go.uber.org/fx"

var Module = fx.Module("billingrun",
	fx.Provide(NewCheckHandler),
	fx.Provide(NewScheduler),
	fx.Invoke(Register),
	fx.Invoke(RunScheduler),
)
