package obligation

import (
	"github.com/smallbiznis/masstrack/internal/obligation/repository"
	"github.com/smallbiznis/masstrack/internal/obligation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("obligation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewTracker),
)
