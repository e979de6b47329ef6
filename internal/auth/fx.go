package auth

import (
	"github.com/smallbiznis/masstrack/internal/auth/repository"
	"github.com/smallbiznis/masstrack/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.NewIssuer),
	fx.Provide(service.New),
)
