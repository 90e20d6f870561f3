package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/akeren/go-waitlist/config"
	"github.com/akeren/go-waitlist/domain/users"
	"github.com/akeren/go-waitlist/domain/waitlist"
	"github.com/akeren/go-waitlist/internal/log"
	"github.com/akeren/go-waitlist/pkg/migrations"
	"github.com/akeren/go-waitlist/pkg/utils"
	"gorm.io/gorm"
)

var errMemoryStorage = errors.New("command needs a database; set STORAGE_DRIVER to postgres or sqlite")

// openStorage opens the configured relational store and returns a closer.
func openStorage(logger *log.Logger) (*gorm.DB, config.StorageDriver, func(), error) {
	driver, err := config.ResolveStorageDriver()
	if err != nil {
		return nil, "", nil, err
	}

	db, err := config.OpenDatabase(logger, driver, &config.DBConfig{})
	if err != nil {
		return nil, "", nil, err
	}
	if db == nil {
		return nil, driver, nil, errMemoryStorage
	}

	return db, driver, func() { config.CloseDatabase(db, logger) }, nil
}

func runMigrate(logger *log.Logger, args []string) error {
	db, driver, closeDB, err := openStorage(logger)
	if err != nil {
		return err
	}
	defer closeDB()

	dialect, _ := driver.MigrationDialect()

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get SQL DB instance: %w", err)
	}

	cfg := migrations.Config{
		Dir:     utils.GetEnvTrimmedOrDefault("MIGRATIONS_DIR", "migrations"),
		Dialect: dialect,
		Logger:  logger,
	}

	if len(args) > 0 && args[0] == "status" {
		status, err := migrations.CurrentStatus(sqlDB, cfg)
		if err != nil {
			return err
		}
		if !status.Applied {
			fmt.Println("no migrations applied")
			return nil
		}
		fmt.Printf("version=%d dirty=%t\n", status.Version, status.Dirty)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := migrations.Up(ctx, sqlDB, cfg); err != nil {
		return err
	}

	logger.Info("Database migrations completed")
	return nil
}

func runExport(logger *log.Logger, args []string) error {
	db, _, closeDB, err := openStorage(logger)
	if err != nil {
		return err
	}
	defer closeDB()

	service := waitlist.NewWaitlistServiceFactory(waitlist.FactoryConfig{DB: db, Logger: logger}).CreateService()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	body, err := service.ExportCSV(ctx)
	if err != nil {
		return err
	}

	if len(args) == 0 || args[0] == "-" {
		if _, err := os.Stdout.Write(body); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		return nil
	}

	if err := writeExportFile(args[0], body); err != nil {
		return err
	}
	logger.Info("Waitlist exported", "file", args[0], "bytes", len(body))
	return nil
}

// writeExportFile reports close errors too; a failed flush means a truncated CSV.
func writeExportFile(path string, body []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close export file: %w", cerr)
		}
	}()

	if _, err := f.Write(body); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func runCreateUser(logger *log.Logger, args []string) error {
	db, _, closeDB, err := openStorage(logger)
	if err != nil {
		return err
	}
	defer closeDB()

	service := users.NewUserServiceFactory(db, logger).CreateService()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := service.CreateUser(ctx, &users.CreateUserRequest{Username: args[0], Password: args[1]})
	if err != nil {
		return err
	}

	fmt.Printf("created user id=%d username=%s\n", user.ID, user.Username)
	return nil
}
