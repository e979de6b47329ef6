package intention

import (
	"github.com/smallbiznis/masstrack/internal/intention/repository"
	"github.com/smallbiznis/masstrack/internal/intention/service"
	"go.uber.org/fx"
)

var Module = fx.Module("intention.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
