package billing

import (
	"github.com/smallbiznis/subtrack/internal/billing/repository"
	"github.com/smallbiznis/subtrack/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(service.NewRecorder),
	fx.Provide(service.NewAdvancer),
	fx.Provide(service.NewHistoryService),
)
