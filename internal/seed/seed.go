package seed

import (
	"context"
	"errors"
	"strings"

	authdomain "github.com/smallbiznis/masstrack/internal/auth/domain"
	"github.com/smallbiznis/masstrack/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultAdminFullName = "Administrator"

var Module = fx.Module("seed",
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, users authdomain.Service, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return EnsureAdmin(ctx, users, cfg.Bootstrap, log)
			},
		})
	}),
)

// EnsureAdmin creates the bootstrap administrator once. It is a no-op when
// no bootstrap credentials are configured or the account already exists.
func EnsureAdmin(ctx context.Context, users authdomain.Service, cfg config.BootstrapConfig, log *zap.Logger) error {
	if users == nil {
		return errors.New("seed user service is required")
	}
	log = log.Named("seed")

	username := strings.TrimSpace(cfg.AdminUsername)
	email := strings.TrimSpace(cfg.AdminEmail)
	if username == "" || email == "" || cfg.AdminPassword == "" {
		log.Debug("bootstrap admin not configured")
		return nil
	}

	user, created, err := users.EnsureAdmin(ctx, authdomain.RegisterRequest{
		Username: username,
		Email:    email,
		Password: cfg.AdminPassword,
		FullName: defaultAdminFullName,
	})
	if err != nil {
		return err
	}
	if created {
		log.Info("bootstrap admin created",
			zap.String("user_id", user.ID.String()),
			zap.String("username", user.Username),
		)
	}
	return nil
}
