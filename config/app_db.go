package config

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/go-waitlist/internal/log"
	"github.com/akeren/go-waitlist/pkg/migrations"
	"github.com/akeren/go-waitlist/pkg/retry"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type StorageDriver string

const (
	StorageDriverPostgres StorageDriver = "postgres"
	StorageDriverSQLite   StorageDriver = "sqlite"
	StorageDriverMemory   StorageDriver = "memory"
)

// MigrationDialect maps a relational driver to its SQL migration dialect.
func (d StorageDriver) MigrationDialect() (migrations.Dialect, bool) {
	switch d {
	case StorageDriverPostgres:
		return migrations.DialectPostgres, true
	case StorageDriverSQLite:
		return migrations.DialectSQLite, true
	default:
		return "", false
	}
}

type DBConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SSLMode         string // Default: "require" for prod safety
	ConnectAttempts int
}

func (cfg *DBConfig) withDefaults() *DBConfig {
	out := DBConfig{}
	if cfg != nil {
		out = *cfg
	}
	if out.MaxIdleConns <= 0 {
		out.MaxIdleConns = 10
	}
	if out.MaxOpenConns <= 0 {
		out.MaxOpenConns = 100
	}
	if out.ConnMaxLifetime <= 0 {
		out.ConnMaxLifetime = time.Minute
	}
	if out.SSLMode == "" {
		out.SSLMode = "require"
	}
	if out.ConnectAttempts <= 0 {
		out.ConnectAttempts = 3
		if raw := sanitizeEnv(GetValueFromEnvironmentVariable("DB_CONNECT_ATTEMPTS", "")); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				out.ConnectAttempts = parsed
			}
		}
	}
	return &out
}

// ResolveStorageDriver honours STORAGE_DRIVER and otherwise picks postgres
// when any database setting is present, falling back to the in-memory store.
func ResolveStorageDriver() (StorageDriver, error) {
	raw := strings.ToLower(sanitizeEnv(GetValueFromEnvironmentVariable("STORAGE_DRIVER", "")))

	switch StorageDriver(raw) {
	case StorageDriverPostgres, StorageDriverSQLite, StorageDriverMemory:
		return StorageDriver(raw), nil
	case "":
	default:
		return "", fmt.Errorf("unsupported STORAGE_DRIVER %q (allowed: postgres, sqlite, memory)", raw)
	}

	if sanitizeEnv(GetValueFromEnvironmentVariable("APP_DATABASE_URL", "")) != "" ||
		sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_HOST", "")) != "" {
		return StorageDriverPostgres, nil
	}

	if sanitizeEnv(GetValueFromEnvironmentVariable("SQLITE_PATH", "")) != "" {
		return StorageDriverSQLite, nil
	}

	return StorageDriverMemory, nil
}

// OpenDatabase returns nil without error for the memory driver.
func OpenDatabase(logger *log.Logger, driver StorageDriver, cfg *DBConfig) (*gorm.DB, error) {
	switch driver {
	case StorageDriverPostgres:
		return NewDatabase(logger, cfg)
	case StorageDriverSQLite:
		return NewSQLiteDatabase(logger, GetValueFromEnvironmentVariable("SQLITE_PATH", "waitlist.db"))
	case StorageDriverMemory:
		logger.Warn("Using in-memory storage; signups will not survive a restart")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

func NewDatabase(logger *log.Logger, cfg *DBConfig) (*gorm.DB, error) {
	cfg = cfg.withDefaults()

	dsn, err := resolvePostgresDSN(logger, cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// The ping below retries; gorm's own ping would fail on the first attempt.
		DisableAutomaticPing: true,
		TranslateError:       true,
	})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		logger.Error("Failed to get database instance", "error", err)
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Serverless Postgres providers may need a moment to wake up.
	policy := retry.NewExponentialBackoff(&retry.Config{
		MaxAttempts: cfg.ConnectAttempts,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logger.Warn("Database not ready, retrying", "attempt", attempt, "delay", delay.String(), "error", err)
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := policy.Execute(ctx, sqlDB.PingContext); err != nil {
		logger.Error("Database ping failed", "error", err, "attempts", cfg.ConnectAttempts)
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Database connection established successfully")
	return gdb, nil
}

func NewSQLiteDatabase(logger *log.Logger, path string) (*gorm.DB, error) {
	path = sanitizeEnv(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Error("Failed to open SQLite database", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// SQLite serializes writers; one connection avoids "database is locked".
	sqlDB.SetMaxOpenConns(1)

	logger.Info("SQLite database opened", "path", path)
	return gdb, nil
}

// postgresEnv holds the discrete POSTGRES_* settings used when
// APP_DATABASE_URL is not set.
type postgresEnv struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func postgresEnvFromEnv() postgresEnv {
	get := func(key string) string { return sanitizeEnv(GetValueFromEnvironmentVariable(key, "")) }

	return postgresEnv{
		Host:     get("POSTGRES_HOST"),
		Port:     get("POSTGRES_PORT"),
		User:     get("POSTGRES_USER"),
		Password: get("POSTGRES_PASSWORD"),
		DBName:   get("POSTGRES_DB_NAME"),
		SSLMode:  get("POSTGRES_SSLMODE"),
	}
}

func (pe postgresEnv) validate() error {
	var missing []string
	for key, value := range map[string]string{
		"POSTGRES_HOST":    pe.Host,
		"POSTGRES_PORT":    pe.Port,
		"POSTGRES_USER":    pe.User,
		"POSTGRES_DB_NAME": pe.DBName,
	} {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing required database env vars: %s", strings.Join(missing, ", "))
	}

	if port, err := strconv.Atoi(pe.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid POSTGRES_PORT %q", pe.Port)
	}
	return nil
}

// url builds a postgres:// URL so credentials with spaces or quotes survive.
func (pe postgresEnv) url(defaultSSLMode string) string {
	sslMode := pe.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(pe.User, pe.Password),
		Host:     net.JoinHostPort(pe.Host, pe.Port),
		Path:     "/" + pe.DBName,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

func resolvePostgresDSN(logger *log.Logger, cfg *DBConfig) (string, error) {
	if dsn := sanitizeEnv(GetValueFromEnvironmentVariable("APP_DATABASE_URL", "")); dsn != "" {
		logger.Info("Using APP_DATABASE_URL for database connection")
		return dsn, nil
	}

	pe := postgresEnvFromEnv()
	if err := pe.validate(); err != nil {
		return "", err
	}

	logger.Info("Connecting to database", "host", pe.Host, "port", pe.Port, "user", pe.User, "dbname", pe.DBName)
	return pe.url(cfg.SSLMode), nil
}

func sanitizeEnv(v string) string {
	s := strings.TrimSpace(v)

	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = s[1 : len(s)-1]
	}

	return s
}

func AutoMigrate(logger *log.Logger, db *gorm.DB, models ...interface{}) error {
	if db == nil {
		logger.Error("Cannot migrate: db is empty")
		return fmt.Errorf("cannot migrate: db is empty")
	}

	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Database migration failed", "error", err)
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	logger.Info("Database migration completed successfully")

	return nil
}

func CloseDatabase(db *gorm.DB, logger *log.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get SQL DB instance", "error", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
	} else {
		logger.Info("Database closed successfully")
	}
}
