package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/akeren/go-waitlist/config/router"
	"github.com/akeren/go-waitlist/internal/log"
	"github.com/akeren/go-waitlist/pkg/ratelimit"
	"gorm.io/gorm"
)

const (
	statusUp       = "up"
	statusDown     = "down"
	statusDisabled = "disabled"

	healthCheckTimeout = 3 * time.Second
)

type Cache interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Status        string `json:"status"` // ok or degraded
	StorageDriver string `json:"storage_driver"`
	Database      string `json:"database"`
	Cache         string `json:"cache"`
	Notifiers     int    `json:"notifiers"`
	Uptime        int    `json:"uptime"` // seconds
}

type MonitoringController struct {
	db            *gorm.DB
	storageDriver string
	logger        *log.Logger
	cache         Cache
	notifiers     int
	startTime     time.Time
}

func NewMonitoringController(cfg ControllerConfig) *router.RESTController {
	ctrl := &MonitoringController{
		db:            cfg.DB,
		storageDriver: cfg.StorageDriver,
		logger:        cfg.Logger,
		cache:         cfg.Cache,
		notifiers:     cfg.Notifiers,
		startTime:     time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(routerService *router.RouterService, controller *router.RESTController) {
			routerService.SetControllerRateLimiter(controller, createMonitoringRateLimiter())

			routerService.AddGetHandler(controller, nil, "", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.monitor(c)
			})

			routerService.AddGetHandler(controller, nil, "health", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthCheck(routerService, c)
			})
		},
	)
}

func createMonitoringRateLimiter() ratelimit.RateLimiter {
	const monitoringRequestsPerMinute = 10

	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: monitoringRequestsPerMinute,
		Window:   time.Minute,
	})
}

func (ctrl *MonitoringController) healthCheck(routerService *router.RouterService, c *router.RequestContext) *router.ServiceResult {
	logger := routerService.GetLogger(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	healthStatus := ctrl.performHealthChecks(ctx, logger)

	return &router.ServiceResult{
		StatusCode: http.StatusOK,
		Data:       healthStatus,
		Message:    "go-waitlist health check completed",
	}
}

func (ctrl *MonitoringController) monitor(c *router.RequestContext) *router.ServiceResult {
	return router.OKResult("Waitlist service is operational.", "Monitoring successful")
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		Status:        "ok",
		StorageDriver: ctrl.storageDriver,
		Database:      ctrl.databaseStatus(ctx),
		Cache:         ctrl.cacheStatus(ctx),
		Notifiers:     ctrl.notifiers,
		Uptime:        int(time.Since(ctrl.startTime).Seconds()),
	}

	if status.Database == statusDown || status.Cache == statusDown {
		status.Status = "degraded"
		logger.Error("Health check degraded", "database", status.Database, "cache", status.Cache)
	} else {
		logger.Info("Health check passed", "database", status.Database, "cache", status.Cache)
	}

	return status
}

// databaseStatus reports disabled when signups are kept in memory.
func (ctrl *MonitoringController) databaseStatus(ctx context.Context) string {
	if ctrl.db == nil {
		return statusDisabled
	}

	sqlDB, err := ctrl.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		return statusDown
	}
	return statusUp
}

func (ctrl *MonitoringController) cacheStatus(ctx context.Context) string {
	if ctrl.cache == nil {
		return statusDisabled
	}
	if ctrl.cache.Ping(ctx) != nil {
		return statusDown
	}
	return statusUp
}
