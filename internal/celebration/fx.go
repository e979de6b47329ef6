package celebration

import (
	"github.com/smallbiznis/masstrack/internal/celebration/repository"
	"github.com/smallbiznis/masstrack/internal/celebration/service"
	"go.uber.org/fx"
)

var Module = fx.Module("celebration.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
