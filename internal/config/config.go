// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/notifyctl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Trigger timing constants — single source of truth for the evaluator
// --------------------------------------------------------------------------

const (
	// DefaultWindowMinutes is the tolerance around a trigger's target
	// minute. Sized so a 5-minute cron interval never misses a window.
	DefaultWindowMinutes = 4

	// DefaultCooldownMinutes suppresses a re-fire of the same trigger
	// across adjacent cron ticks. Must exceed twice the window width.
	DefaultCooldownMinutes = 20
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// VAPID identity (all three required)
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	// Prayer time provider
	PrayerAPIBaseURL string
	PrayerAPITimeout time.Duration
	PrayerAPIPerMin  int // request budget per minute

	// Delivery
	PushTimeout     time.Duration
	PushTTLSeconds  int
	DefaultTimezone string

	// Dispatch
	WindowMinutes   int
	CooldownMinutes int
	DispatchWorkers int
}

// Load reads configuration from environment variables with sensible defaults.
// The VAPID key pair and subject are mandatory: the dispatcher cannot
// authenticate to any push service without them.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	pub := envOr("VAPID_PUBLIC_KEY", "")
	priv := envOr("VAPID_PRIVATE_KEY", "")
	subject := envOr("VAPID_SUBJECT", "mailto:contact@qurancoach.app")
	if pub == "" || priv == "" {
		return nil, fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"https://qurancoach.app",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		VAPIDPublicKey:  pub,
		VAPIDPrivateKey: priv,
		VAPIDSubject:    subject,

		PrayerAPIBaseURL: envOr("PRAYER_API_BASE_URL", "https://api.aladhan.com"),
		PrayerAPITimeout: time.Duration(envInt("PRAYER_API_TIMEOUT_SECONDS", 15)) * time.Second,
		PrayerAPIPerMin:  envInt("PRAYER_API_REQUESTS_PER_MINUTE", 60),

		PushTimeout:     time.Duration(envInt("PUSH_TIMEOUT_SECONDS", 15)) * time.Second,
		PushTTLSeconds:  envInt("PUSH_TTL_SECONDS", 86400),
		DefaultTimezone: envOr("DEFAULT_TIMEZONE", "Europe/Paris"),

		WindowMinutes:   envInt("TRIGGER_WINDOW_MINUTES", DefaultWindowMinutes),
		CooldownMinutes: envInt("TRIGGER_COOLDOWN_MINUTES", DefaultCooldownMinutes),
		DispatchWorkers: envInt("DISPATCH_WORKERS", 8),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
