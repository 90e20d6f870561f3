package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/akeren/go-waitlist/internal/log"
	"github.com/joho/godotenv"
)

const AppEnvKey = "APP_ENV"

// Hosted function platforms inject configuration directly.
var platformEnvMarkers = []string{"VERCEL", "AWS_LAMBDA_FUNCTION_NAME", "K_SERVICE"}

// InitializeEnvFile loads ENV_FILE (default .env) without overriding
// variables that are already set.
func InitializeEnvFile(logger *log.Logger) {
	if os.Getenv("SKIP_DOTENV") == "true" {
		logger.Info("Skipping .env file load (SKIP_DOTENV=true)")
		return
	}

	if marker, ok := runningOnPlatform(); ok {
		logger.Info("Skipping .env file load on hosted platform", "marker", marker)
		return
	}

	path := GetValueFromEnvironmentVariable("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		logger.Warn("No .env file found or failed to load it", "path", path, "error", err.Error())
		return
	}

	logger.Info("Environment variables loaded from .env file", "path", path)
}

func runningOnPlatform() (string, bool) {
	for _, key := range platformEnvMarkers {
		if os.Getenv(key) != "" {
			return key, true
		}
	}
	return "", false
}

func GetValueFromEnvironmentVariable(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func GetAppEnv() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv(AppEnvKey)))
}

// Schema auto-migration is limited to environments where losing data is cheap.
var autoMigrateEnvs = []string{"", "dev", "development", "local", "test", "testing"}

func ValidateAutoMigrateAllowed(appEnv string) error {
	env := strings.ToLower(strings.TrimSpace(appEnv))
	if slices.Contains(autoMigrateEnvs, env) {
		return nil
	}

	return fmt.Errorf("--auto-migrate is not allowed when %s=%q; run `cli migrate` instead", AppEnvKey, env)
}
