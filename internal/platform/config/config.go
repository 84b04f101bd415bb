// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a default good enough for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	Environment   string
	Addr          string
	JWTSigningKey string
	DatabaseURL   string
	Redis         RedisConfig
	Stream        StreamConfig
	Notifications NotificationConfig
}

// StreamConfig configures the live-update subsystem.
type StreamConfig struct {
	// MaxSubscriptions caps concurrently active push connections.
	MaxSubscriptions int
	// HeartbeatInterval is how often keep-alives are pushed.
	HeartbeatInterval time.Duration
	// SubscriptionTimeout is the maximum lifetime of one connection.
	SubscriptionTimeout time.Duration
	// FanoutWorkers bounds concurrent pushes during one fan-out pass.
	FanoutWorkers int
}

// NotificationConfig configures notification fan-out.
type NotificationConfig struct {
	// ExcludedModules lists modules that never produce notifications.
	// Matching is case- and accent-insensitive.
	ExcludedModules []string
}

// RedisConfig configures the optional Redis cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Environment:   envOr("MAINTRACK_ENV", "development"),
		Addr:          envOr("MAINTRACK_ADDR", ":8080"),
		JWTSigningKey: envOr("MAINTRACK_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		DatabaseURL:   os.Getenv("MAINTRACK_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("MAINTRACK_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}

	var err error
	if cfg.Stream.MaxSubscriptions, err = envInt("MAINTRACK_MAX_SUBSCRIPTIONS", 100); err != nil {
		return Config{}, err
	}
	if cfg.Stream.HeartbeatInterval, err = envSeconds("MAINTRACK_HEARTBEAT_INTERVAL_SECONDS", 30); err != nil {
		return Config{}, err
	}
	if cfg.Stream.SubscriptionTimeout, err = envSeconds("MAINTRACK_SUBSCRIPTION_TIMEOUT_SECONDS", 300); err != nil {
		return Config{}, err
	}
	if cfg.Stream.FanoutWorkers, err = envInt("MAINTRACK_FANOUT_WORKERS", 16); err != nil {
		return Config{}, err
	}

	cfg.Notifications.ExcludedModules = splitList(envOr("MAINTRACK_EXCLUDED_MODULES", "Czesci"))

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envSeconds(key string, fallbackSeconds int) (time.Duration, error) {
	v, err := envInt(key, fallbackSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Second, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
