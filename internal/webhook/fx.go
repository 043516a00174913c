package webhook

import (
	"github.com/smallbiznis/subtrack/internal/webhook/repository"
	"github.com/smallbiznis/subtrack/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
