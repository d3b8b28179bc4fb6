// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"

	appanalytics "github.com/sitepulse/analytics/internal/application/analytics"
	"github.com/sitepulse/analytics/internal/infrastructure/config"
	"github.com/sitepulse/analytics/internal/infrastructure/monitoring"
	"github.com/sitepulse/analytics/internal/ports/inbound"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	MonitoringModule,
	EngineModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return monitoring.NewLogger(monitoring.LogConfig{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			ServiceName: cfg.App.Name,
			Environment: cfg.App.Environment,
			Version:     cfg.App.Version,
		})
	},
	// Provide sugared logger
	func(log *zap.Logger) *zap.SugaredLogger {
		return log.Sugar()
	},
)

// MonitoringModule provides the Prometheus collector
var MonitoringModule = fx.Provide(
	monitoring.NewMetricsCollector,
)

// EngineModule provides the aggregation engine behind its inbound port
var EngineModule = fx.Provide(
	func(cfg *config.Config, monitor *monitoring.MetricsCollector, log *zap.Logger) *appanalytics.Engine {
		return appanalytics.NewEngine(cfg, monitor, log)
	},
	func(engine *appanalytics.Engine) inbound.AnalyticsService {
		return engine
	},
)

// LifecycleModule wires startup and shutdown hooks
var LifecycleModule = fx.Invoke(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				log.Info("analytics engine started",
					zap.String("environment", cfg.App.Environment),
					zap.Float64("sample_rate", cfg.Tracking.SampleRate),
					zap.Bool("anonymize_ip", cfg.Tracking.AnonymizeIP),
				)
				return nil
			},
			OnStop: func(ctx context.Context) error {
				log.Info("analytics engine stopped")
				return log.Sync()
			},
		})
	},
)
