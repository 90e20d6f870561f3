package domain

import (
	"github.com/akeren/go-waitlist/config"
	"github.com/akeren/go-waitlist/domain/monitoring"
	"github.com/akeren/go-waitlist/domain/waitlist"
)

func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	appConfig.RouterService.MountController(NewMonitoringFactory(appConfig).CreateController())
	appConfig.RouterService.MountController(NewWaitlistFactory(appConfig).CreateController())
}

func NewMonitoringFactory(appConfig *config.ApplicationConfig) monitoring.MonitoringControllerFactory {
	cfg := monitoring.ControllerConfig{
		DB:            appConfig.DB,
		StorageDriver: string(appConfig.StorageDriver),
		Logger:        appConfig.Logger,
		Notifiers:     appConfig.Notifier.Len(),
	}
	if appConfig.Cache != nil {
		cfg.Cache = appConfig.Cache
	}
	return monitoring.NewMonitoringControllerFactory(cfg)
}

func NewWaitlistFactory(appConfig *config.ApplicationConfig) waitlist.WaitlistServiceFactory {
	cfg := waitlist.FactoryConfig{
		DB:         appConfig.DB,
		Logger:     appConfig.Logger,
		Registerer: appConfig.RouterService.MetricsRegisterer(),
	}
	if appConfig.Notifier != nil {
		cfg.Notifier = appConfig.Notifier
	}
	if appConfig.Cache != nil {
		cfg.ExportCache = appConfig.Cache
		cfg.ExportCacheTTL = appConfig.Config.ExportCacheTTL
	}
	return waitlist.NewWaitlistServiceFactory(cfg)
}
