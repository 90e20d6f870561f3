package router

import (
	"context"
	"errors"
	"math"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/akeren/go-waitlist/internal/log"
	apperrors "github.com/akeren/go-waitlist/pkg/errors"
	"github.com/akeren/go-waitlist/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

// requestContextMiddleware attaches the correlation id and a logger carrying
// it to the request context, and echoes the id back to the caller.
func (routerService *RouterService) requestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(log.CorrelationIDHeader)
		if id == "" {
			id = log.GenerateCorrelationID()
		}
		c.Header(log.CorrelationIDHeader, id)

		ctx := log.ContextWithCorrelationID(c.Request.Context(), id)
		ctx = log.ContextWithLogger(ctx, routerService.logger.WithCorrelationID(ctx))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func (routerService *RouterService) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		logger := log.GetLoggerInstanceFromContext(c.Request.Context(), routerService.logger)
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("HTTP request", args...)
		case status >= http.StatusBadRequest:
			logger.Warn("HTTP request", args...)
		default:
			logger.Info("HTTP request", args...)
		}
	}
}

func (routerService *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	hsts := routerService.options.HSTS
	hstsValue := hsts.headerValue()

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if hsts.Enabled && isHTTPS(c) {
			h.Set("Strict-Transport-Security", hstsValue)
		}
		c.Next()
	}
}

// isHTTPS also trusts X-Forwarded-Proto since TLS usually ends at the edge.
func isHTTPS(c *gin.Context) bool {
	return c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
}

func (routerService *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	maxBytes := routerService.options.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			abortWith(c, ErrorResult(http.StatusRequestEntityTooLarge, "Request payload too large", nil))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func (routerService *RouterService) corsMiddleware() gin.HandlerFunc {
	cfg := routerService.options.CORS
	anyOrigin := cfg.allowsAnyOrigin()

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()

		switch {
		case anyOrigin:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(cfg.AllowedOrigins, origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		default:
			if origin != "" {
				routerService.logger.Warn("CORS origin not allowed", "origin", origin)
			}
			c.Next()
			return
		}

		h.Set("Access-Control-Allow-Methods", cfg.AllowedMethods)
		h.Set("Access-Control-Allow-Headers", cfg.AllowedHeaders)
		c.Next()
	}
}

// timeoutMiddleware bounds the request context. Handlers stay on the serving
// goroutine because gin.Context is not safe for concurrent use; a handler
// that overruns without writing gets a 408 afterwards.
func (routerService *RouterService) timeoutMiddleware() gin.HandlerFunc {
	timeout := routerService.requestTimeout

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			log.GetLoggerInstanceFromContext(ctx, routerService.logger).Warn("Request timed out", "timeout", timeout.String())
			abortWith(c, ErrorResult(apperrors.StatusRequestTimeout, "Request timeout", nil))
		}
	}
}

// limiterFor resolves the limiter for a matched route. Handler overrides win
// over controller overrides, which win over the global limiter.
func (routerService *RouterService) limiterFor(route, method string) (ratelimit.RateLimiter, bool) {
	handlerKey := routerService.keyForPathAndMethod(route, method)

	controller, ok := routerService.handlerToControllerMap[handlerKey]
	if !ok || controller == nil {
		return nil, false
	}

	if limiter, ok := routerService.rateLimitOverrides[handlerKey]; ok {
		return limiter, true
	}
	if limiter, ok := routerService.rateLimitOverrides[controller.mountPoint]; ok {
		return limiter, true
	}
	return routerService.rateLimiter, true
}

func (routerService *RouterService) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		// Unmatched routes fall through to the NoRoute and NoMethod handlers.
		if route == "" {
			c.Next()
			return
		}

		limiter, ok := routerService.limiterFor(route, c.Request.Method)
		if !ok {
			// Only routes registered outside a controller (like /metrics) get here.
			c.Next()
			return
		}

		limit, window := limiter.GetLimitDetails()
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Window", window.String())

		clientIP := c.ClientIP()
		limited, err := limiter.IsLimited(c.Request.Context(), "ratelimit:"+clientIP)
		if err != nil {
			// A broken limiter backend must not take the signup form down.
			routerService.logger.Error("Rate limiter error; allowing request", "error", err, "client_ip", clientIP)
			c.Next()
			return
		}

		if limited {
			retryAfter := strconv.Itoa(max(1, int(math.Ceil(window.Seconds()))))
			routerService.logger.Warn("Rate limit exceeded", "client_ip", clientIP, "route", route)
			c.Header("Retry-After", retryAfter)
			abortWith(c, TooManyRequestsResult(RateLimitResponse{
				Limit:      limit,
				Window:     window.String(),
				RetryAfter: retryAfter,
			}))
			return
		}

		c.Next()
	}
}

func abortWith(c *gin.Context, result *ServiceResult) {
	c.AbortWithStatusJSON(result.StatusCode, result.ToJSON())
}
