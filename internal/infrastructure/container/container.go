// Package container provides dependency injection using Uber FX
package container

import (
	"context"

	appanalytics "github.com/rekomendr/rekomendr/internal/application/analytics"
	appquota "github.com/rekomendr/rekomendr/internal/application/quota"
	"github.com/rekomendr/rekomendr/internal/application/recommend"
	domquota "github.com/rekomendr/rekomendr/internal/domain/quota"
	"github.com/rekomendr/rekomendr/internal/infrastructure/ai/openai"
	"github.com/rekomendr/rekomendr/internal/infrastructure/cache"
	"github.com/rekomendr/rekomendr/internal/infrastructure/config"
	"github.com/rekomendr/rekomendr/internal/infrastructure/http/server"
	"github.com/rekomendr/rekomendr/internal/infrastructure/monitoring"
	gormRepo "github.com/rekomendr/rekomendr/internal/infrastructure/persistence/gorm"
	quotamem "github.com/rekomendr/rekomendr/internal/infrastructure/quota/memory"
	"github.com/rekomendr/rekomendr/internal/ports/outbound"
	"github.com/rekomendr/rekomendr/pkg/healthcheck"
	"github.com/rekomendr/rekomendr/pkg/logger"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	CacheModule,
	StoreModule,
	ServiceModule,
	HealthModule,
	HTTPModule,
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
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
)

// DatabaseModule provides the analytics database
var DatabaseModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
		db, err := gormRepo.Connect(cfg)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to analytics database",
			zap.String("driver", cfg.Database.Driver),
			zap.String("database", cfg.Database.Database),
		)
		return db, nil
	},
)

// CacheModule provides the recommendation response cache. Redis when
// enabled, in-process otherwise.
var CacheModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) outbound.CacheRepository {
		if cfg.Redis.Enable {
			redisCache, err := cache.NewRedisCache(cfg.Redis, log)
			if err == nil {
				return redisCache
			}
			log.Warn("Redis unavailable, falling back to in-process cache", zap.Error(err))
		}
		return cache.NewMemoryCache()
	},
)

// StoreModule provides the quota store. One explicit instance owned by the
// composition root; request handlers receive it through the quota service.
var StoreModule = fx.Provide(
	quotamem.NewStore,
	fx.Annotate(
		func(s *quotamem.Store) *quotamem.Store { return s },
		fx.As(new(outbound.QuotaStore)),
	),
	fx.Annotate(
		func(s *quotamem.Store) *quotamem.Store { return s },
		fx.As(new(outbound.ChainStore)),
	),
	func() domquota.CapPolicy {
		return domquota.BetaFlagPolicy{}
	},
	monitoring.NewMetrics,
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	func(
		store outbound.QuotaStore,
		chains outbound.ChainStore,
		policy domquota.CapPolicy,
		metrics *monitoring.Metrics,
		log *zap.Logger,
	) *appquota.Service {
		return appquota.NewService(store, chains, policy, metrics, log)
	},

	gormRepo.NewAnalyticsRepository,

	fx.Annotate(
		func(cfg *config.Config, c outbound.CacheRepository, log *zap.Logger) *openai.Client {
			return openai.NewClient(cfg.AI, c, log)
		},
		fx.As(new(outbound.RecommendationService)),
	),

	func(recs outbound.RecommendationService, repo outbound.AnalyticsRepository, log *zap.Logger) *recommend.Service {
		return recommend.NewService(recs, repo, log)
	},

	appanalytics.NewService,
)

// HealthModule provides the dependency probes behind /health.
var HealthModule = fx.Provide(
	func(db *gorm.DB, c outbound.CacheRepository, log *zap.Logger) *healthcheck.Health {
		h := healthcheck.New(log)
		if sqlDB, err := db.DB(); err == nil {
			h.Register("database", healthcheck.Database(sqlDB))
		}
		h.Register("cache", healthcheck.CacheRoundTrip(c))
		return h
	},
)

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	server.NewServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	db *gorm.DB,
	srv *server.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting Rekomendr",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)

			go func() {
				if err := srv.Start(); err != nil {
					log.Fatal("Failed to start HTTP server", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Rekomendr")

			if err := srv.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			sqlDB, err := db.DB()
			if err == nil {
				if err := sqlDB.Close(); err != nil {
					log.Error("Failed to close database connection", zap.Error(err))
				}
			}

			_ = log.Sync()
			return nil
		},
	})
}
