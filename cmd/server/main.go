package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/akeren/go-waitlist/config"
	"github.com/akeren/go-waitlist/domain"
	"github.com/akeren/go-waitlist/internal/log"
)

const shutdownGracePeriod = 30 * time.Second

func main() {
	logger := log.NewLoggerWithJSONOutput()

	if err := run(logger, os.Args[1:]); err != nil {
		logger.Error("Waitlist server stopped", "error", err)
		os.Exit(1)
	}
}

// run serves until SIGINT or SIGTERM, then drains in-flight requests and
// pending notifications before releasing resources.
func run(logger *log.Logger, args []string) error {
	autoMigrate := slices.Contains(args, "--auto-migrate") || slices.Contains(args, "-m")

	appConfig, err := config.LoadApplicationConfiguration(logger, autoMigrate)
	if err != nil {
		return err
	}
	defer appConfig.Cleanup()

	domain.SetupCoreDomain(appConfig)
	logger.Info("Waitlist server ready",
		"storage_driver", appConfig.StorageDriver,
		"notifiers", appConfig.Notifier.Len(),
		"export_cache", appConfig.Cache != nil,
		"auto_migrate", autoMigrate,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- appConfig.RouterService.RunHTTPServer()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	if err := appConfig.RouterService.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server did not shut down cleanly", "error", err)
	}
	return nil
}
