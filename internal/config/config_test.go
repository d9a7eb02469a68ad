package config

import (
	"testing"
	"time"
)

// setEnv sets an environment variable for the duration of the test.
func setEnv(t *testing.T, k, v string) {
	t.Helper()
	t.Setenv(k, v)
}

func TestLoad_Defaults(t *testing.T) {
	// GIN_MODE=test so the JWT secret requirement does not trip.
	setEnv(t, "GIN_MODE", "test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q; want 8080", cfg.Port)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v; want 15s", cfg.ReadTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want info", cfg.LogLevel)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q; want /api/v1", cfg.APIBasePath)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q; want localhost:6379", cfg.RedisAddr)
	}
	if cfg.Auth.JWTTTL != 24*time.Hour {
		t.Errorf("Auth.JWTTTL = %v; want 24h", cfg.Auth.JWTTTL)
	}
	if cfg.Auth.CodeTTL != 5*time.Minute {
		t.Errorf("Auth.CodeTTL = %v; want 5m", cfg.Auth.CodeTTL)
	}
	if cfg.Chat.LookupTimeout != 5*time.Second {
		t.Errorf("Chat.LookupTimeout = %v; want 5s", cfg.Chat.LookupTimeout)
	}
	if cfg.Chat.SendBuffer != 256 {
		t.Errorf("Chat.SendBuffer = %d; want 256", cfg.Chat.SendBuffer)
	}
	if len(cfg.Chat.AllowedOrigins) != 0 {
		t.Errorf("Chat.AllowedOrigins = %v; want empty (allow all)", cfg.Chat.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "GIN_MODE", "test")
	setEnv(t, "PORT", "9999")
	setEnv(t, "LOG_LEVEL", "WARNING")
	setEnv(t, "API_BASE_PATH", "v2/")
	setEnv(t, "REDIS_ADDR", "redis:6379")
	setEnv(t, "AUTH_ALLOWED_EMAIL_DOMAINS", "@a.com, @b.org ,")
	setEnv(t, "CHAT_LOOKUP_TIMEOUT", "2s")
	setEnv(t, "WS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q; want 9999", cfg.Port)
	}
	// "warning" normalizes to "warn"
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want warn", cfg.LogLevel)
	}
	// gets leading slash, trailing slash stripped
	if cfg.APIBasePath != "/v2" {
		t.Errorf("APIBasePath = %q; want /v2", cfg.APIBasePath)
	}
	if got := cfg.Auth.AllowedDomains; len(got) != 2 || got[0] != "@a.com" || got[1] != "@b.org" {
		t.Errorf("AllowedDomains = %v; want [@a.com @b.org]", got)
	}
	if cfg.Chat.LookupTimeout != 2*time.Second {
		t.Errorf("Chat.LookupTimeout = %v; want 2s", cfg.Chat.LookupTimeout)
	}
	if got := cfg.Chat.AllowedOrigins; len(got) != 2 || got[0] != "https://app.example.com" {
		t.Errorf("Chat.AllowedOrigins = %v; want two origins", got)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"bad log level", map[string]string{"GIN_MODE": "test", "LOG_LEVEL": "verbose"}},
		{"negative rate", map[string]string{"GIN_MODE": "test", "RATE_RPS": "-1"}},
		{"zero burst", map[string]string{"GIN_MODE": "test", "RATE_BURST": "0"}},
		{"missing jwt secret in release", map[string]string{"GIN_MODE": "release"}},
		{"zero send buffer", map[string]string{"GIN_MODE": "test", "CHAT_SEND_BUFFER": "0"}},
		{"bad sample ratio", map[string]string{"GIN_MODE": "test", "OTEL_TRACES_SAMPLER_ARG": "1.5"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				setEnv(t, k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("Load() = nil error; want validation failure")
			}
		})
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"/":        "/",
		"api":      "/api",
		"/api/":    "/api",
		"/api/v1/": "/api/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}
