package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/akeren/go-waitlist/internal/log"
	"github.com/akeren/go-waitlist/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

const (
	defaultOTLPEndpoint = "http://localhost:4318"
	defaultOTLPPath     = "/v1/traces"
)

// SetupTracing installs a global OTLP/HTTP tracer provider. It returns a nil
// shutdown func when OTEL_TRACES_ENABLED is off.
func SetupTracing(logger *log.Logger) (func(context.Context) error, error) {
	if !utils.IsTracingEnabled() {
		return nil, nil
	}

	endpoint := utils.GetEnvTrimmedOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", defaultOTLPEndpoint)
	exporter, err := newTraceExporter(endpoint)
	if err != nil {
		return nil, err
	}

	serviceName := utils.OTelServiceName()
	res, err := newTraceResource(serviceName, GetAppEnv())
	if err != nil {
		return nil, err
	}

	ratio := utils.TraceSampleRatio()
	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(ratio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logger.Info("Tracing enabled", "service", serviceName, "endpoint", endpoint, "sample_ratio", ratio)
	return tp.Shutdown, nil
}

func newTraceExporter(endpoint string) (trace.SpanExporter, error) {
	hostport, urlPath, insecure, err := parseOTLPEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(hostport),
		otlptracehttp.WithURLPath(urlPath),
	}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("tracing: exporter: %w", err)
	}
	return exporter, nil
}

func newTraceResource(serviceName, appEnv string) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{attribute.String("service.name", serviceName)}
	if appEnv != "" {
		attrs = append(attrs, attribute.String("deployment.environment", appEnv))
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(attrs...),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: resource: %w", err)
	}
	return res, nil
}

// parseOTLPEndpoint accepts http(s)://host:port[/path] or a bare host:port,
// which is treated as plain http. The path defaults to /v1/traces.
func parseOTLPEndpoint(raw string) (hostport, urlPath string, insecure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false, fmt.Errorf("tracing: empty OTLP endpoint")
	}

	if !strings.Contains(raw, "://") {
		// otlptracehttp.WithEndpoint takes only host:port.
		if strings.ContainsAny(raw, "/?#") {
			return "", "", false, fmt.Errorf("tracing: OTLP endpoint %q needs a scheme when it carries a path", raw)
		}
		return raw, defaultOTLPPath, true, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false, fmt.Errorf("tracing: OTLP endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", "", false, fmt.Errorf("tracing: OTLP endpoint %q has no host", raw)
	}

	switch strings.ToLower(u.Scheme) {
	case "http":
		insecure = true
	case "https":
	default:
		return "", "", false, fmt.Errorf("tracing: OTLP endpoint scheme %q is not http or https", u.Scheme)
	}

	urlPath = u.EscapedPath()
	if urlPath == "" || urlPath == "/" {
		urlPath = defaultOTLPPath
	}
	return u.Host, urlPath, insecure, nil
}
