package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BUSINESS_TZ", "")
	t.Setenv("REMINDER_LEAD_HOURS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.BusinessTimezone != "Asia/Dhaka" {
		t.Fatalf("expected default business timezone, got %s", cfg.BusinessTimezone)
	}
	if cfg.ReminderLeadHours != 24 {
		t.Fatalf("expected default reminder lead hours, got %d", cfg.ReminderLeadHours)
	}
	if cfg.ReportCacheTTL != 6*time.Hour {
		t.Fatalf("expected default report cache TTL, got %s", cfg.ReportCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("BUSINESS_TZ", "UTC")
	t.Setenv("REMINDER_LEAD_HOURS", "48")
	t.Setenv("REPORT_CACHE_TTL", "2h")
	t.Setenv("REDIS_TLS", "true")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected overridden database url, got %s", cfg.DatabaseURL)
	}
	if cfg.BusinessTimezone != "UTC" {
		t.Fatalf("expected overridden timezone, got %s", cfg.BusinessTimezone)
	}
	if cfg.ReminderLeadHours != 48 {
		t.Fatalf("expected overridden reminder lead hours, got %d", cfg.ReminderLeadHours)
	}
	if cfg.ReportCacheTTL != 2*time.Hour {
		t.Fatalf("expected overridden report cache TTL, got %s", cfg.ReportCacheTTL)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis TLS enabled")
	}
}

func TestBusinessLocationFallsBackToUTC(t *testing.T) {
	t.Setenv("BUSINESS_TZ", "Not/AZone")
	cfg := Load()
	if loc := cfg.BusinessLocation(); loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", loc)
	}
}
