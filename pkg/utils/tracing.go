package utils

import (
	"os"
	"strconv"
	"strings"
)

func IsTracingEnabled() bool {
	return GetEnvBoolOrDefault("OTEL_TRACES_ENABLED", false)
}

// TraceSampleRatio reads OTEL_TRACES_SAMPLER_ARG, clamped to [0, 1].
func TraceSampleRatio() float64 {
	v := strings.TrimSpace(os.Getenv("OTEL_TRACES_SAMPLER_ARG"))
	if v == "" {
		return 1
	}

	ratio, err := strconv.ParseFloat(v, 64)
	switch {
	case err != nil:
		return 1
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}

func OTelServiceName() string {
	serviceName := strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME"))
	if serviceName == "" {
		serviceName = "go-waitlist"
	}
	return serviceName
}
