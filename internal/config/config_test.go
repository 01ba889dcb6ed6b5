package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("MONITOR_POLL_INTERVAL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.MonitorPollInterval != 30*time.Second {
		t.Fatalf("expected default poll interval, got %s", cfg.MonitorPollInterval)
	}
	if cfg.SearchPageSize != 5000 {
		t.Fatalf("expected default page size, got %d", cfg.SearchPageSize)
	}
	if cfg.SendGridFromName != "Slotwatch" {
		t.Fatalf("expected default sendgrid from name, got %s", cfg.SendGridFromName)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MONITOR_POLL_INTERVAL", "5s")
	t.Setenv("SEARCH_PAGE_SIZE", "200")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("HISTORY_TTL", "24h")
	t.Setenv("AUTH_JWT_SECRET", "hunter2")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.MonitorPollInterval != 5*time.Second {
		t.Fatalf("expected poll interval override, got %s", cfg.MonitorPollInterval)
	}
	if cfg.SearchPageSize != 200 {
		t.Fatalf("expected page size override, got %d", cfg.SearchPageSize)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected redis addr override, got %s", cfg.RedisAddr)
	}
	if cfg.HistoryTTL != 24*time.Hour {
		t.Fatalf("expected history ttl override, got %s", cfg.HistoryTTL)
	}
	if cfg.AuthJWTSecret != "hunter2" {
		t.Fatalf("expected jwt secret override, got %s", cfg.AuthJWTSecret)
	}
}
