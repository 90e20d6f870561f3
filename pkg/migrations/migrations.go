package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Dialect selects both the migrate database driver and the SQL subdirectory.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

type migrator interface {
	Up() error
	Version() (version uint, dirty bool, err error)
	Close() (sourceErr error, databaseErr error)
}

var driverFactory = func(db *sql.DB, cfg Config) (database.Driver, error) {
	switch cfg.Dialect {
	case DialectSQLite:
		return sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: cfg.MigrationsTable})
	default:
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationsTable})
	}
}

var migratorFactory = func(sourceURL string, dialect Dialect, driver database.Driver) (migrator, error) {
	return migrate.NewWithDatabaseInstance(sourceURL, string(dialect), driver)
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Config struct {
	// Dir holds one subdirectory per dialect.
	Dir             string
	Dialect         Dialect
	MigrationsTable string
	Logger          Logger
}

// Status describes the schema version recorded by the migrator.
type Status struct {
	Version uint
	Dirty   bool
	Applied bool
}

func (cfg Config) withDefaults() Config {
	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = "migrations"
	}
	if cfg.Dialect == "" {
		cfg.Dialect = DialectPostgres
	}
	if strings.TrimSpace(cfg.MigrationsTable) == "" {
		cfg.MigrationsTable = "schema_migrations"
	}
	return cfg
}

func (cfg Config) sourceURL() (string, error) {
	absDir, err := filepath.Abs(filepath.Join(cfg.Dir, string(cfg.Dialect)))
	if err != nil {
		return "", fmt.Errorf("migrations: resolve dir: %w", err)
	}

	// ToSlash keeps Windows paths valid inside a file:// URL.
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(absDir)}).String(), nil
}

func open(db *sql.DB, cfg Config) (migrator, string, func(), error) {
	sourceURL, err := cfg.sourceURL()
	if err != nil {
		return nil, "", nil, err
	}

	driver, err := driverFactory(db, cfg)
	if err != nil {
		return nil, "", nil, fmt.Errorf("migrations: %s driver: %w", cfg.Dialect, err)
	}

	m, err := migratorFactory(sourceURL, cfg.Dialect, driver)
	if err != nil {
		return nil, "", nil, fmt.Errorf("migrations: init: %w", err)
	}

	var once sync.Once
	closeFn := func() {
		once.Do(func() {
			srcErr, dbErr := m.Close()
			if cfg.Logger == nil {
				return
			}
			if srcErr != nil {
				cfg.Logger.Warn("Migrations source close error", "error", srcErr)
			}
			if dbErr != nil {
				cfg.Logger.Warn("Migrations db close error", "error", dbErr)
			}
		})
	}

	return m, sourceURL, closeFn, nil
}

// Up applies every pending migration. migrate has no context support, so
// cancellation closes the migrator and returns ctx.Err(). The database
// driver closes db on the way out; callers must not reuse it.
func Up(ctx context.Context, db *sql.DB, cfg Config) error {
	if db == nil {
		return fmt.Errorf("migrations: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg = cfg.withDefaults()

	m, sourceURL, closeMigrator, err := open(db, cfg)
	if err != nil {
		return err
	}
	defer closeMigrator()

	if cfg.Logger != nil {
		cfg.Logger.Info("Running SQL migrations", "source", sourceURL, "dialect", cfg.Dialect, "table", cfg.MigrationsTable)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Up()
	}()

	select {
	case <-ctx.Done():
		closeMigrator()
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, migrate.ErrNoChange) {
			if cfg.Logger != nil {
				cfg.Logger.Info("No migrations to apply")
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrations: up: %w", err)
		}
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("Migrations applied successfully")
	}
	return nil
}

// CurrentStatus reports the applied schema version without changing it.
// Like Up, it closes db.
func CurrentStatus(db *sql.DB, cfg Config) (Status, error) {
	if db == nil {
		return Status{}, fmt.Errorf("migrations: db is nil")
	}

	m, _, closeMigrator, err := open(db, cfg.withDefaults())
	if err != nil {
		return Status{}, err
	}
	defer closeMigrator()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("migrations: version: %w", err)
	}

	return Status{Version: version, Dirty: dirty, Applied: true}, nil
}
