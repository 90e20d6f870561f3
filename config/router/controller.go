package router

import (
	"fmt"
	"net/http"
	"path"

	"github.com/akeren/go-waitlist/pkg/ratelimit"
)

// joinRoute builds a clean absolute route; path.Join drops duplicate and
// trailing slashes.
func joinRoute(parts ...string) string {
	return path.Join(append([]string{"/"}, parts...)...)
}

func (routerService *RouterService) keyForPathAndMethod(route, method string) string {
	return method + " " + route
}

func (routerService *RouterService) bindHandler(controller *RESTController, route, method string, limiter ratelimit.RateLimiter) {
	key := routerService.keyForPathAndMethod(route, method)

	if other, exists := routerService.handlerToControllerMap[key]; exists {
		panic(fmt.Sprintf("router: %s already registered by controller %q", key, other.name))
	}
	routerService.handlerToControllerMap[key] = controller

	if limiter != nil {
		routerService.rateLimitOverrides[key] = limiter
	}
}

func renderResult(handler HandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)

		switch {
		case result == nil:
			GetLogger(c).Error("Handler returned no result", "route", c.FullPath())
			c.JSON(http.StatusInternalServerError, InternalServerErrorResult("An unexpected error occurred").ToJSON())
		case result.Attachment != nil:
			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Attachment.Filename))
			c.Data(result.StatusCode, result.Attachment.ContentType, result.Attachment.Body)
		default:
			c.JSON(result.StatusCode, result.ToJSON())
		}
	}
}

func NewRESTController(name, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: joinRoute(mountPoint),
		prepare:    prepare,
	}
}

// NewVersionedRESTController mounts under /<version>/<mountPoint>.
func NewVersionedRESTController(name, version, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: joinRoute(version, mountPoint),
		version:    version,
		prepare:    prepare,
	}
}

func (routerService *RouterService) addHandler(
	controller *RESTController,
	method string,
	limiter ratelimit.RateLimiter,
	relativePath string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	route := joinRoute(controller.mountPoint, relativePath)

	routerService.bindHandler(controller, route, method, limiter)
	routerService.engine.Handle(method, route, append(middlewares, renderResult(handler))...)
	controller.handlerCount++

	routerService.logger.Debug("Handler registered", "method", method, "route", route, "controller", controller.name)
}

func (routerService *RouterService) AddGetHandler(controller *RESTController, limiter ratelimit.RateLimiter, path string, handler HandlerFunction, middlewares ...MiddlewareFunc) {
	routerService.addHandler(controller, http.MethodGet, limiter, path, handler, middlewares...)
}

func (routerService *RouterService) AddPostHandler(controller *RESTController, limiter ratelimit.RateLimiter, path string, handler HandlerFunction, middlewares ...MiddlewareFunc) {
	routerService.addHandler(controller, http.MethodPost, limiter, path, handler, middlewares...)
}

// AddOptionsHandler registers an explicit preflight route. The CORS
// middleware has already set the Access-Control headers when it runs.
func (routerService *RouterService) AddOptionsHandler(controller *RESTController, limiter ratelimit.RateLimiter, path string, handler HandlerFunction, middlewares ...MiddlewareFunc) {
	routerService.addHandler(controller, http.MethodOptions, limiter, path, handler, middlewares...)
}

// SetControllerRateLimiter overrides the global limiter for every handler of
// a controller. Handler-level limiters still take precedence.
func (routerService *RouterService) SetControllerRateLimiter(controller *RESTController, limiter ratelimit.RateLimiter) {
	if limiter != nil {
		routerService.rateLimitOverrides[controller.mountPoint] = limiter
	}
}
