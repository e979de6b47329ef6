package bulkintention

import (
	"github.com/smallbiznis/masstrack/internal/bulkintention/repository"
	"github.com/smallbiznis/masstrack/internal/bulkintention/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bulkintention.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
