package monitoring

import (
	"github.com/akeren/go-waitlist/config/router"
	"github.com/akeren/go-waitlist/internal/log"
	"gorm.io/gorm"
)

type ControllerConfig struct {
	DB            *gorm.DB
	StorageDriver string
	Logger        *log.Logger
	Cache         Cache
	Notifiers     int
}

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	cfg ControllerConfig
}

func NewMonitoringControllerFactory(cfg ControllerConfig) MonitoringControllerFactory {
	return &DefaultMonitoringControllerFactory{cfg: cfg}
}

func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	return NewMonitoringController(f.cfg)
}
