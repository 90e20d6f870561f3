package config

import (
	"context"
	"time"

	"github.com/akeren/go-waitlist/config/router"
	"github.com/akeren/go-waitlist/internal/log"
	"github.com/akeren/go-waitlist/internal/models"
	"github.com/akeren/go-waitlist/pkg/constants"
	"github.com/akeren/go-waitlist/pkg/notify"
	"github.com/akeren/go-waitlist/pkg/utils"
	"gorm.io/gorm"
)

type ApplicationConfig struct {
	// DB is nil when StorageDriver is memory.
	DB              *gorm.DB
	StorageDriver   StorageDriver
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Notifier        *notify.Dispatcher
	Config          *AppConfig
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	ExportCacheTTL    time.Duration
}

// NewAppConfig reads the HTTP and export tuning knobs. Invalid or
// non-positive values keep the defaults.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		RateLimitRequests: max(1, utils.GetEnvIntOrDefault("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests)),
		RateLimitWindow:   utils.GetEnvDurationOrDefault("RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow),
		RequestTimeout:    utils.GetEnvDurationOrDefault("REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
		ExportCacheTTL:    utils.GetEnvDurationOrDefault("EXPORT_CACHE_TTL", constants.DefaultExportCacheTTL),
	}
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.Notifier != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := ac.Notifier.Drain(ctx); err != nil {
			ac.Logger.Warn("Pending signup notifications abandoned", "error", err)
		}
		cancel()
	}

	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	if ac.Cache != nil {
		CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

// LoadApplicationConfiguration wires storage, cache, router and notifiers
// from the environment. Anything opened before a failure is released again.
func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (_ *ApplicationConfig, err error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		if err = ValidateAutoMigrateAllowed(GetAppEnv()); err != nil {
			return nil, err
		}
	}

	ac := &ApplicationConfig{Logger: logger, Config: NewAppConfig()}
	defer func() {
		if err != nil {
			ac.Cleanup()
		}
	}()

	if ac.TracingShutdown, err = SetupTracing(logger); err != nil {
		return nil, err
	}

	if ac.StorageDriver, err = ResolveStorageDriver(); err != nil {
		return nil, err
	}
	if ac.DB, err = OpenDatabase(logger, ac.StorageDriver, &DBConfig{}); err != nil {
		return nil, err
	}

	// A local SQLite file has no migration pipeline; always sync its schema.
	if ac.DB != nil && (autoMigrate || ac.StorageDriver == StorageDriverSQLite) {
		if err = AutoMigrate(logger, ac.DB, models.ModelRegistry...); err != nil {
			return nil, err
		}
	}

	ac.Cache = NewCacheConfig().NewCacheOrNil(logger)
	ac.RouterService = router.CreateRouterService(logger, ac.Cache, &router.RouterConfig{
		RateLimitRequests: ac.Config.RateLimitRequests,
		RateLimitWindow:   ac.Config.RateLimitWindow,
		RequestTimeout:    ac.Config.RequestTimeout,
	})
	ac.Notifier = NewNotifierConfig().NewDispatcher(logger, ac.RouterService.MetricsRegisterer())

	logger.Info("Application configuration loaded", "storage_driver", ac.StorageDriver, "app_env", GetAppEnv())
	return ac, nil
}
