package config

import (
	"context"
	"testing"

	"github.com/akeren/go-waitlist/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOTLPEndpoint(t *testing.T) {
	cases := []struct {
		raw      string
		hostport string
		path     string
		insecure bool
	}{
		{"http://collector:4318", "collector:4318", "/v1/traces", true},
		{"https://otel.example.com/custom/traces", "otel.example.com", "/custom/traces", false},
		{"localhost:4318", "localhost:4318", "/v1/traces", true},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			hostport, path, insecure, err := parseOTLPEndpoint(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.hostport, hostport)
			assert.Equal(t, tc.path, path)
			assert.Equal(t, tc.insecure, insecure)
		})
	}
}

func TestParseOTLPEndpoint_Rejects(t *testing.T) {
	for _, raw := range []string{"", "grpc://collector:4317", "collector:4318/v1/traces", "http://"} {
		_, _, _, err := parseOTLPEndpoint(raw)
		assert.Error(t, err, raw)
	}
}

func TestSetupTracing_DisabledReturnsNil(t *testing.T) {
	t.Setenv("OTEL_TRACES_ENABLED", "false")

	shutdown, err := SetupTracing(log.NewLoggerWithJSONOutput())
	require.NoError(t, err)
	assert.Nil(t, shutdown)
}

func TestNewTraceResource_CarriesServiceAndEnvironment(t *testing.T) {
	res, err := newTraceResource("go-waitlist", "staging")
	require.NoError(t, err)

	values := map[string]string{}
	for _, kv := range res.Attributes() {
		values[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "go-waitlist", values["service.name"])
	assert.Equal(t, "staging", values["deployment.environment"])
}

func TestNewTraceExporter_BuildsWithoutConnecting(t *testing.T) {
	exporter, err := newTraceExporter("http://127.0.0.1:4318")
	require.NoError(t, err)
	require.NotNil(t, exporter)
	assert.NoError(t, exporter.Shutdown(context.Background()))

	_, err = newTraceExporter("grpc://collector:4317")
	assert.Error(t, err)
}
