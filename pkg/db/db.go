// Package db opens the gorm connection shared by every repository.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/quoteflow/internal/config"
	"github.com/smallbiznis/quoteflow/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprom "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(FromConfig),
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lc  fx.Lifecycle
	Cfg Config
	App config.Config
	Log *zap.Logger
}

// New opens the database, installs tracing and pool metrics, and closes the pool on stop.
func New(p Params) (*gorm.DB, error) {
	dialect, err := Dialect(p.Cfg)
	if err != nil {
		return nil, err
	}

	gormLogCfg := logger.DefaultGormLoggerConfig()
	db, err := gorm.Open(dialect, &gorm.Config{
		Logger:         logger.NewGormLogger(p.Log.Named("db"), gormLogCfg),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Use(otelgorm.NewPlugin(otelgorm.WithDBName(p.Cfg.Name))); err != nil {
		return nil, fmt.Errorf("install otelgorm: %w", err)
	}
	if err := db.Use(gormprom.New(gormprom.Config{
		DBName:          p.Cfg.Name,
		RefreshInterval: 15,
		StartServer:     false,
		Labels:          map[string]string{"service": strings.TrimSpace(p.App.AppName)},
	})); err != nil {
		return nil, fmt.Errorf("install gorm prometheus: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if p.Cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(p.Cfg.MaxIdleConn)
	}
	if p.Cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(p.Cfg.MaxOpenConn)
	}
	if p.Cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(p.Cfg.ConnMaxLifetime)
	}
	if p.Cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(p.Cfg.ConnMaxIdleTime)
	}

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sqlDB.PingContext(ctx)
		},
		OnStop: func(context.Context) error {
			p.Log.Info("closing database pool")
			return sqlDB.Close()
		},
	})

	p.Log.Info("database configured",
		zap.String("type", p.Cfg.Type),
		zap.String("host", p.Cfg.Host),
		zap.String("name", p.Cfg.Name),
	)
	return db, nil
}
