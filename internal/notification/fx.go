package notification

import (
	"github.com/smallbiznis/masstrack/internal/notification/repository"
	"github.com/smallbiznis/masstrack/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewEmitter),
)
