package waitlist

import (
	"time"

	"github.com/akeren/go-waitlist/config/router"
	"github.com/akeren/go-waitlist/internal/log"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type WaitlistServiceFactory interface {
	CreateService() WaitlistService
	CreateController() *router.RESTController
}

type FactoryConfig struct {
	// DB selects the relational repository. When nil, signups live in memory
	// for the lifetime of the factory.
	DB             *gorm.DB
	Logger         *log.Logger
	Notifier       SignupNotifier
	ExportCache    ExportCache
	ExportCacheTTL time.Duration
	Registerer     prometheus.Registerer
}

type DefaultWaitlistServiceFactory struct {
	cfg        FactoryConfig
	repository WaitlistRepository
}

func NewWaitlistServiceFactory(cfg FactoryConfig) WaitlistServiceFactory {
	var repository WaitlistRepository
	if cfg.DB != nil {
		repository = NewWaitlistRepository(cfg.DB)
	} else {
		repository = NewMemoryWaitlistRepository()
	}

	return &DefaultWaitlistServiceFactory{
		cfg:        cfg,
		repository: repository,
	}
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	return NewWaitlistService(f.cfg.Logger, f.repository, WaitlistServiceConfig{
		Notifier:       f.cfg.Notifier,
		ExportCache:    f.cfg.ExportCache,
		ExportCacheTTL: f.cfg.ExportCacheTTL,
		Registerer:     f.cfg.Registerer,
	})
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewWaitlistController(f.CreateService())
}
