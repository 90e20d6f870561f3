package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvTrimmedOrDefault(t *testing.T) {
	t.Setenv("UTILS_TEST_STR", "  value ")
	assert.Equal(t, "value", GetEnvTrimmedOrDefault("UTILS_TEST_STR", "fallback"))

	t.Setenv("UTILS_TEST_STR", "   ")
	assert.Equal(t, "fallback", GetEnvTrimmedOrDefault("UTILS_TEST_STR", "fallback"))
}

func TestGetEnvBoolOrDefault(t *testing.T) {
	t.Setenv("UTILS_TEST_BOOL", "true")
	assert.True(t, GetEnvBoolOrDefault("UTILS_TEST_BOOL", false))

	t.Setenv("UTILS_TEST_BOOL", "nope")
	assert.True(t, GetEnvBoolOrDefault("UTILS_TEST_BOOL", true))
}

func TestGetEnvDurationOrDefault(t *testing.T) {
	t.Setenv("UTILS_TEST_DUR", "750ms")
	assert.Equal(t, 750*time.Millisecond, GetEnvDurationOrDefault("UTILS_TEST_DUR", time.Second))

	for _, bad := range []string{"-1s", "0s", "soon"} {
		t.Setenv("UTILS_TEST_DUR", bad)
		assert.Equal(t, time.Second, GetEnvDurationOrDefault("UTILS_TEST_DUR", time.Second), bad)
	}
}

func TestGetEnvIntOrDefault(t *testing.T) {
	t.Setenv("UTILS_TEST_INT", "3")
	assert.Equal(t, 3, GetEnvIntOrDefault("UTILS_TEST_INT", 0))

	t.Setenv("UTILS_TEST_INT", "-2")
	assert.Equal(t, 7, GetEnvIntOrDefault("UTILS_TEST_INT", 7))
}

func TestTraceSampleRatio(t *testing.T) {
	cases := map[string]float64{"": 1, "0.25": 0.25, "2": 1, "-1": 0, "abc": 1}
	for raw, want := range cases {
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", raw)
		assert.Equal(t, want, TraceSampleRatio(), raw)
	}
}

func TestOTelServiceNameDefault(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	assert.Equal(t, "go-waitlist", OTelServiceName())
}
