package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/smallbiznis/masstrack/internal/config"
	obslogger "github.com/smallbiznis/masstrack/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(ConfigFrom),
	fx.Provide(Open),
)

type OpenParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Config     Config
	AppConfig  config.Config
	Log        *zap.Logger
	GormLogger *obslogger.GormLogger `optional:"true"`
}

// Open connects with exponential backoff, applies pool settings and installs
// the tracing and prometheus plugins.
func Open(p OpenParams) (*gorm.DB, error) {
	log := p.Log.Named("db")
	dialector, err := Dialect(p.Config)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{TranslateError: true}
	if p.GormLogger != nil {
		gormCfg.Logger = p.GormLogger
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	attempt := 0
	conn, err := backoff.Retry(ctx, func() (*gorm.DB, error) {
		attempt++
		db, err := gorm.Open(dialector, gormCfg)
		if err != nil {
			log.Warn("database connect failed", zap.Int("attempt", attempt), zap.Error(err))
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			log.Warn("database ping failed", zap.Int("attempt", attempt), zap.Error(err))
			return nil, err
		}
		return db, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(p.Config.ConnectRetries),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if p.Config.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(p.Config.MaxIdleConn)
	}
	if p.Config.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(p.Config.MaxOpenConn)
	}
	if p.Config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(p.Config.ConnMaxLifetime)
	}
	if p.Config.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(p.Config.ConnMaxIdleTime)
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(p.Config.Name))); err != nil {
		return nil, fmt.Errorf("install otelgorm: %w", err)
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          p.Config.Name,
		RefreshInterval: 15,
		StartServer:     false,
		Labels: map[string]string{
			"service": p.AppConfig.AppName,
		},
	})); err != nil {
		return nil, fmt.Errorf("install gorm prometheus: %w", err)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return sqlDB.Close()
		},
	})

	log.Info("database connected",
		zap.String("type", p.Config.Type),
		zap.String("host", p.Config.Host),
		zap.String("name", p.Config.Name),
	)
	return conn, nil
}
