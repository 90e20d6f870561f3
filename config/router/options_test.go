package router

import (
	"reflect"
	"testing"
)

func TestParseTrustedProxies(t *testing.T) {
	cases := map[string][]string{
		"":                         nil,
		"  ":                       nil,
		"*":                        {"0.0.0.0/0", "::/0"},
		"10.0.0.0/8, 192.168.1.1,": {"10.0.0.0/8", "192.168.1.1"},
	}

	for raw, want := range cases {
		if got := parseTrustedProxies(raw); !reflect.DeepEqual(got, want) {
			t.Errorf("parseTrustedProxies(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNewHTTPOptionsFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "CORS_ALLOWED_ORIGIN", "CORS_ALLOWED_METHODS", "CORS_ALLOWED_HEADERS", "HSTS_ENABLED", "HSTS_MAX_AGE", "MAX_REQUEST_BODY_BYTES", "TRUSTED_PROXIES"} {
		t.Setenv(key, "")
	}

	opts := newHTTPOptionsFromEnv()

	if !opts.CORS.allowsAnyOrigin() {
		t.Fatalf("expected wildcard origin by default, got %v", opts.CORS.AllowedOrigins)
	}
	if opts.HSTS.Enabled {
		t.Fatalf("HSTS should be off outside production")
	}
	if opts.MaxBodyBytes != defaultMaxBodyBytes {
		t.Fatalf("unexpected max body %d", opts.MaxBodyBytes)
	}
	if opts.TrustedProxies != nil {
		t.Fatalf("expected no trusted proxies, got %v", opts.TrustedProxies)
	}
}

func TestNewHTTPOptionsFromEnv_ProductionEnablesHSTS(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("HSTS_ENABLED", "")
	t.Setenv("HSTS_MAX_AGE", "")
	t.Setenv("HSTS_INCLUDE_SUBDOMAINS", "")

	opts := newHTTPOptionsFromEnv()
	if !opts.HSTS.Enabled {
		t.Fatalf("expected HSTS in production")
	}
	if got := opts.HSTS.headerValue(); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("unexpected header %q", got)
	}
}

func TestJoinRoute(t *testing.T) {
	cases := [][2]string{
		{joinRoute("/"), "/"},
		{joinRoute("/", ""), "/"},
		{joinRoute("/", "health"), "/health"},
		{joinRoute("api", "/waitlist"), "/api/waitlist"},
		{joinRoute("/api/waitlist", "/export/"), "/api/waitlist/export"},
	}
	for _, c := range cases {
		if c[0] != c[1] {
			t.Errorf("got %q, want %q", c[0], c[1])
		}
	}
}
