package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Business timezone: all appointment dates/times are interpreted here.
	BusinessTimezone string

	AuthJWTSecret string

	ReminderLeadHours int

	LocationCacheTTL time.Duration
	ReportCacheTTL   time.Duration

	// SendGrid email configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Cron schedules for cmd/scheduler
	ReminderCronSpec string
	ReportCronSpec   string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		BusinessTimezone: getEnv("BUSINESS_TZ", "Asia/Dhaka"),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		ReminderLeadHours: getEnvAsInt("REMINDER_LEAD_HOURS", 24),

		LocationCacheTTL: getEnvAsDuration("LOCATION_CACHE_TTL", 24*time.Hour),
		ReportCacheTTL:   getEnvAsDuration("REPORT_CACHE_TTL", 6*time.Hour),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "HealthDesk"),

		ReminderCronSpec: getEnv("REMINDER_CRON", "0 9 * * *"),
		ReportCronSpec:   getEnv("REPORT_CRON", "0 2 1 * *"),
	}
}

// BusinessLocation resolves the configured business timezone, falling back to UTC.
func (c *Config) BusinessLocation() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
