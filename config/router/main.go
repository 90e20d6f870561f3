package router

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/akeren/go-waitlist/internal/log"
	apperrors "github.com/akeren/go-waitlist/pkg/errors"
	"github.com/akeren/go-waitlist/pkg/ratelimit"
	"github.com/akeren/go-waitlist/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const DefaultTimeoutDuration = 30 * time.Second

// Cache is the subset of the application cache the router needs.
type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
}

type RouterService struct {
	engine          *gin.Engine
	server          *http.Server
	logger          *log.Logger
	options         *HTTPOptions
	rateLimiter     ratelimit.RateLimiter
	requestTimeout  time.Duration
	metricsRegistry *prometheus.Registry

	handlerToControllerMap map[string]*RESTController
	rateLimitOverrides     map[string]ratelimit.RateLimiter
}

func CreateRouterService(logger *log.Logger, cache Cache, routerConfig *RouterConfig) *RouterService {
	if mode := utils.GetEnvTrimmed("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	}

	timeout := routerConfig.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeoutDuration
	}

	rs := &RouterService{
		engine:                 gin.New(),
		logger:                 logger,
		options:                newHTTPOptionsFromEnv(),
		requestTimeout:         timeout,
		handlerToControllerMap: make(map[string]*RESTController),
		rateLimitOverrides:     make(map[string]ratelimit.RateLimiter),
	}

	rs.configureEngine()
	rs.rateLimiter = newGlobalRateLimiter(logger, cache, routerConfig)

	// /metrics is registered before the request middleware so scrapes are
	// neither rate limited nor request-logged.
	rs.mountMetrics()

	rs.engine.Use(
		rs.securityHeadersMiddleware(),
		rs.maxBodySizeMiddleware(),
		rs.corsMiddleware(),
		rs.rateLimitMiddleware(),
		rs.timeoutMiddleware(),
		rs.requestContextMiddleware(),
		rs.requestLoggingMiddleware(),
	)

	rs.server = &http.Server{
		Handler: rs.engine,
		// Server timeouts enforce the deadline mid-flight; timeoutMiddleware
		// only reports overruns.
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Router service initialized",
		"gin_mode", gin.Mode(),
		"cors_origins", rs.options.CORS.AllowedOrigins,
		"request_timeout", timeout.String(),
	)
	return rs
}

func (routerService *RouterService) configureEngine() {
	engine := routerService.engine
	logger := routerService.logger

	engine.Use(gin.Recovery())

	if utils.IsTracingEnabled() {
		engine.Use(otelgin.Middleware(utils.OTelServiceName()))
	}

	// Gin trusts every proxy by default, which lets clients spoof ClientIP()
	// through X-Forwarded-For and dodge the per-IP rate limit.
	if err := engine.SetTrustedProxies(routerService.options.TrustedProxies); err != nil {
		logger.Error("Invalid TRUSTED_PROXIES; trusting none", "error", err)
		_ = engine.SetTrustedProxies(nil)
	}

	engine.HandleMethodNotAllowed = true
	engine.RedirectTrailingSlash = true

	engine.NoRoute(func(c *gin.Context) {
		abortWith(c, ErrorResult(apperrors.StatusNotFound, "Route not found", nil))
	})
	engine.NoMethod(func(c *gin.Context) {
		abortWith(c, ErrorResult(apperrors.StatusMethodNotAllowed, "Method not allowed", nil))
	})
}

// newGlobalRateLimiter prefers Redis so limits hold across instances, and
// falls back to a per-process limiter when Redis is absent or unreachable.
func newGlobalRateLimiter(logger *log.Logger, cache Cache, cfg *RouterConfig) ratelimit.RateLimiter {
	var client *redis.Client
	if provider, ok := cache.(RedisClientProvider); ok {
		client = provider.GetClient()
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Warn("Redis unreachable for rate limiting; using in-memory limiter", "error", err)
			client = nil
		}
	}

	backend := "memory"
	if client != nil {
		backend = "redis"
	}
	logger.Info("Rate limiting initialized", "backend", backend, "requests", cfg.RateLimitRequests, "window", cfg.RateLimitWindow.String())

	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: cfg.RateLimitRequests,
		Window:   cfg.RateLimitWindow,
		Redis:    client,
		Logger:   logger,
	})
}

// MetricsRegisterer returns the registry served on /metrics, or nil when
// metrics are disabled.
func (routerService *RouterService) MetricsRegisterer() prometheus.Registerer {
	if routerService.metricsRegistry == nil {
		return nil
	}
	return routerService.metricsRegistry
}

func (routerService *RouterService) GetEngine() *gin.Engine {
	return routerService.engine
}

func (routerService *RouterService) GetLogger(c *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(c.Request.Context(), routerService.logger)
}

func (routerService *RouterService) MountController(controller *RESTController) {
	controller.prepare(routerService, controller)

	routerService.logger.Info("Controller mounted",
		"name", controller.name,
		"path", controller.mountPoint,
		"version", controller.version,
		"handlers", controller.handlerCount,
	)
}

func (routerService *RouterService) RunHTTPServer() error {
	routerService.server.Addr = ":" + utils.GetEnvTrimmedOrDefault("APP_PORT", "8080")
	routerService.logger.Info("Starting HTTP server", "addr", routerService.server.Addr)

	if err := routerService.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (routerService *RouterService) Shutdown(ctx context.Context) error {
	routerService.logger.Info("Shutting down HTTP server")
	return routerService.server.Shutdown(ctx)
}

func (routerService *RouterService) Cleanup() {
	closed := map[ratelimit.RateLimiter]bool{}
	limiters := append([]ratelimit.RateLimiter{routerService.rateLimiter}, slices.Collect(maps.Values(routerService.rateLimitOverrides))...)

	for _, limiter := range limiters {
		if limiter == nil || closed[limiter] {
			continue
		}
		closed[limiter] = true
		if err := limiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "error", err)
		}
	}
}
