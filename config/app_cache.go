package config

import (
	"context"
	"errors"
	"time"

	"github.com/akeren/go-waitlist/internal/log"
	pkgredis "github.com/akeren/go-waitlist/pkg/redis"
	"github.com/akeren/go-waitlist/pkg/utils"
	"github.com/go-redis/redis/v8"
)

// Cache backs the CSV export cache and, through RedisClientProvider, the
// shared rate limiter.
type Cache interface {
	// Get returns ("", nil) on a miss.
	Get(ctx context.Context, key string) (string, error)
	// Set with ttl=0 never expires.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// RedisClientProvider exposes the raw client for Lua scripting.
type RedisClientProvider interface {
	GetClient() *redis.Client
}

var ErrCacheNotConfigured = errors.New("cache: neither REDIS_URL nor REDIS_HOST is set")

type CacheConfig struct {
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

func NewCacheConfig() *CacheConfig {
	return &CacheConfig{
		URL:      utils.GetEnvTrimmed("REDIS_URL"),
		Host:     utils.GetEnvTrimmed("REDIS_HOST"),
		Port:     utils.GetEnvTrimmedOrDefault("REDIS_PORT", "6379"),
		Password: utils.GetEnvTrimmed("REDIS_PASSWORD"),
		DB:       utils.GetEnvIntOrDefault("REDIS_DB", 0),
	}
}

func (cc *CacheConfig) IsConfigured() bool {
	return cc.URL != "" || cc.Host != ""
}

// target is safe to log; it never includes credentials.
func (cc *CacheConfig) target() string {
	if cc.URL != "" {
		return "url"
	}
	return cc.Host + ":" + cc.Port
}

func (cc *CacheConfig) NewCache(logger *log.Logger) (Cache, error) {
	if !cc.IsConfigured() {
		return nil, ErrCacheNotConfigured
	}

	cache, err := pkgredis.NewRedisCache(&pkgredis.Config{
		URL:      cc.URL,
		Host:     cc.Host,
		Port:     cc.Port,
		Password: cc.Password,
		DB:       cc.DB,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Redis connected", "target", cc.target(), "db", cc.DB)
	return cache, nil
}

// NewCacheOrNil degrades to no cache: exports are rebuilt on every request
// and rate limiting stays per process.
func (cc *CacheConfig) NewCacheOrNil(logger *log.Logger) Cache {
	if !cc.IsConfigured() {
		logger.Info("Redis not configured; export cache disabled, rate limiting in memory")
		return nil
	}

	cache, err := cc.NewCache(logger)
	if err != nil {
		logger.Warn("Redis unavailable; continuing without it", "target", cc.target(), "error", err)
		return nil
	}

	return cache
}

func GetRedisClient(cache Cache) *redis.Client {
	if provider, ok := cache.(RedisClientProvider); ok {
		return provider.GetClient()
	}
	return nil
}

func CloseCache(cache Cache, logger *log.Logger) error {
	if cache == nil {
		return nil
	}

	if err := cache.Close(); err != nil {
		logger.Error("Failed to close Redis", "error", err)
		return err
	}

	logger.Info("Redis connection closed")
	return nil
}
