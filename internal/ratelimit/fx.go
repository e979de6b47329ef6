package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const loginKeyPrefix = "login:attempts:"

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewAttemptStore),
	fx.Provide(NewLoginLimiter),
	fx.Provide(NewClientLimiter),
	fx.Provide(NewLocker),
)

// NewRedisClient returns nil when no redis address is configured.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.Redis.Enabled() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err != nil {
				return fmt.Errorf("redis ping: %w", err)
			}
			log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

// NewAttemptStore prefers the shared redis store and falls back to memory.
func NewAttemptStore(client *redis.Client, c clock.Clock, log *zap.Logger) AttemptStore {
	if client == nil {
		log.Warn("redis not configured; login attempts are tracked per process")
		return NewMemoryStore(c)
	}
	return NewRedisStore(client)
}

// NewLoginLimiter returns nil when rate limiting is disabled.
func NewLoginLimiter(cfg config.Config, store AttemptStore) *AttemptLimiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return NewAttemptLimiter(store, loginKeyPrefix, cfg.RateLimit.LoginMaxAttempts, cfg.RateLimit.LoginWindow)
}
