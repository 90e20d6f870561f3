package router

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/akeren/go-waitlist/pkg/utils"
)

const (
	defaultCORSAllowedMethods = "GET, POST, OPTIONS"
	defaultCORSAllowedHeaders = "Content-Type"
	defaultMaxBodyBytes       = 1 << 20
	defaultHSTSMaxAge         = 31536000
)

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods string
	AllowedHeaders string
}

func (cfg *CORSConfig) allowsAnyOrigin() bool {
	return slices.Contains(cfg.AllowedOrigins, "*")
}

type HSTSConfig struct {
	Enabled           bool
	MaxAge            int
	IncludeSubdomains bool
}

func (cfg *HSTSConfig) headerValue() string {
	value := fmt.Sprintf("max-age=%d", cfg.MaxAge)
	if cfg.IncludeSubdomains {
		value += "; includeSubDomains"
	}
	return value
}

// HTTPOptions is the request-handling policy read once from the environment
// when the router is built.
type HTTPOptions struct {
	CORS           CORSConfig
	HSTS           HSTSConfig
	TrustedProxies []string
	MaxBodyBytes   int64
}

func newHTTPOptionsFromEnv() *HTTPOptions {
	appEnv := strings.ToLower(utils.GetEnvTrimmed("APP_ENV"))
	isProduction := appEnv == "production" || appEnv == "prod"

	origins := splitList(os.Getenv("CORS_ALLOWED_ORIGIN"))
	// The signup form is embedded on arbitrary landing pages.
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &HTTPOptions{
		CORS: CORSConfig{
			AllowedOrigins: origins,
			AllowedMethods: utils.GetEnvTrimmedOrDefault("CORS_ALLOWED_METHODS", defaultCORSAllowedMethods),
			AllowedHeaders: utils.GetEnvTrimmedOrDefault("CORS_ALLOWED_HEADERS", defaultCORSAllowedHeaders),
		},
		HSTS: HSTSConfig{
			Enabled:           utils.GetEnvBoolOrDefault("HSTS_ENABLED", isProduction),
			MaxAge:            utils.GetEnvIntOrDefault("HSTS_MAX_AGE", defaultHSTSMaxAge),
			IncludeSubdomains: utils.GetEnvBoolOrDefault("HSTS_INCLUDE_SUBDOMAINS", true),
		},
		TrustedProxies: parseTrustedProxies(os.Getenv("TRUSTED_PROXIES")),
		MaxBodyBytes:   int64(utils.GetEnvIntOrDefault("MAX_REQUEST_BODY_BYTES", defaultMaxBodyBytes)),
	}
}

// parseTrustedProxies returns nil for an empty value so ClientIP() falls back
// to RemoteAddr. "*" trusts every hop and is meant for local setups only.
func parseTrustedProxies(raw string) []string {
	if strings.TrimSpace(raw) == "*" {
		return []string{"0.0.0.0/0", "::/0"}
	}

	proxies := splitList(raw)
	if len(proxies) == 0 {
		return nil
	}
	return proxies
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
