package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("COMPLETION_PROVIDER", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.CompletionProvider != "none" {
		t.Fatalf("expected completion provider none, got %s", cfg.CompletionProvider)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("expected default session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.PhoneCountryCode != "51" || cfg.PhoneLocalDigits != 9 {
		t.Fatalf("unexpected phone defaults %s/%d", cfg.PhoneCountryCode, cfg.PhoneLocalDigits)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins by default, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("COMPLETION_PROVIDER", " OpenAI ")
	t.Setenv("COMPLETION_TEMPERATURE", "0.2")
	t.Setenv("SESSION_TTL", "45m")
	t.Setenv("SESSION_MAX_HISTORY", "8")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.CompletionProvider != "openai" {
		t.Fatalf("expected normalized provider, got %q", cfg.CompletionProvider)
	}
	if cfg.CompletionTemperature != 0.2 {
		t.Fatalf("expected temperature override, got %v", cfg.CompletionTemperature)
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Fatalf("expected ttl override, got %s", cfg.SessionTTL)
	}
	if cfg.SessionMaxHistory != 8 {
		t.Fatalf("expected history override, got %d", cfg.SessionMaxHistory)
	}
	if !cfg.RedisTLS {
		t.Fatal("expected redis tls enabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_MAX_HISTORY", "many")
	t.Setenv("COMPLETION_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT_RPS", "fast")
	cfg := Load()
	if cfg.SessionMaxHistory != 20 {
		t.Fatalf("expected fallback history, got %d", cfg.SessionMaxHistory)
	}
	if cfg.CompletionTimeout != 20*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.CompletionTimeout)
	}
	if cfg.RateLimitRPS != 2 {
		t.Fatalf("expected fallback rps, got %v", cfg.RateLimitRPS)
	}
}
