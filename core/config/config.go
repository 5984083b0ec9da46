package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env     string
	Port    string
	OTel    OTelConfig
	Redis   RedisConfig
	Webhook WebhookConfig
	CORS    CORSConfig
	Client  ClientConfig
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type RedisConfig struct {
	// URL is the redis connection string. Empty means the in-memory
	// store is used instead (single-process development and tests).
	URL string
}

type WebhookConfig struct {
	// PublicBaseURL is the externally reachable base URL of this relay.
	// The automation engine posts replies to <PublicBaseURL>/api/webhook-responses.
	PublicBaseURL string
	// BaseURLOverride, when set, replaces the host portion of catalog
	// webhook URLs (points every agent at one n8n instance).
	BaseURLOverride string
	ForwardTimeout  time.Duration
	PendingTTL      time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// ClientConfig configures the dashboard-side gateway and poller.
type ClientConfig struct {
	RelayURL     string
	PollInterval time.Duration
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeChat   ServiceType = "chat"
)

// Load loads configuration from environment variables.
// In development it loads from service-specific .env files
// (.env.server, .env.chat), falling back to .env.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("RELAY_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	port := getEnv("PORT", "3001")

	cfg := Config{
		Env:  getEnv("RELAY_ENV", "development"),
		Port: port,
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "umbra-relay"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Webhook: WebhookConfig{
			PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),
			BaseURLOverride: getEnv("N8N_BASE_URL", ""),
			ForwardTimeout:  getEnvDuration("FORWARD_TIMEOUT_SECONDS", 30*time.Second),
			PendingTTL:      getEnvDuration("PENDING_TTL_SECONDS", 300*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("DASHBOARD_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		},
		Client: ClientConfig{
			RelayURL:     getEnv("RELAY_API_URL", "http://localhost:"+port),
			PollInterval: getEnvDuration("POLL_INTERVAL_SECONDS", 2*time.Second),
		},
	}

	if cfg.Webhook.PendingTTL <= 0 {
		return Config{}, fmt.Errorf("PENDING_TTL_SECONDS must be positive")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
