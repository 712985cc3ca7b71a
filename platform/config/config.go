// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// HubSpotConfig provides settings for the CRM client.
// The access token may legitimately be empty: the service has no long-lived
// process state, so a missing token surfaces as a configuration error at
// request time, not at startup.
type HubSpotConfig interface {
	GetHubSpotAccessToken() string
	GetHubSpotBaseURL() string
	GetHubSpotTimeout() time.Duration
}

// SchedulerConfig provides settings for the asynq task scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// AttributionStoreConfig provides settings for the stored-attribution cache.
type AttributionStoreConfig interface {
	GetRedisURL() string
	GetAttributionTTL() time.Duration
}

// ContactsConfig provides settings for the contact submission module.
type ContactsConfig interface {
	// GetMeetingBaseURL is the booking page URL tracking parameters are
	// appended to. Empty disables the meeting link in responses.
	GetMeetingBaseURL() string
}

// WebhookConfig provides settings for the CRM webhook endpoint.
type WebhookConfig interface {
	GetWebhookSecret() string
}

// Config holds all application configuration.
type Config struct {
	Env                string
	HTTPAddr           string
	HubSpotAccessToken string
	HubSpotBaseURL     string
	HubSpotTimeout     time.Duration
	RedisURL           string
	RedisTLSInsecure   bool
	AsynqQueueName     string
	AsynqConcurrency   int
	AttributionTTL     time.Duration
	MeetingBaseURL     string
	WebhookSecret      string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
}

// Load reads configuration from the environment (and an optional .env file).
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	// The original deployment accepted either variable name for the token.
	token := getEnv("HUBSPOT_PRIVATE_ACCESS_TOKEN", "")
	if token == "" {
		token = getEnv("HUBSPOT_API_KEY", "")
	}

	hubspotTimeout, err := envDuration("HUBSPOT_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	attributionTTL, err := envDuration("ATTRIBUTION_TTL", "30m")
	if err != nil {
		return nil, err
	}
	asynqConcurrency, err := envInt("ASYNQ_CONCURRENCY", "10")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		HubSpotAccessToken: token,
		HubSpotBaseURL:     getEnv("HUBSPOT_BASE_URL", "https://api.hubapi.com"),
		HubSpotTimeout:     hubspotTimeout,
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisTLSInsecure:   strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:   asynqConcurrency,
		AttributionTTL:     attributionTTL,
		MeetingBaseURL:     getEnv("MEETING_BASE_URL", ""),
		WebhookSecret:      getEnv("WEBHOOK_SECRET", ""),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
	}

	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.HubSpotTimeout <= 0 {
		return nil, fmt.Errorf("HUBSPOT_TIMEOUT must be a positive duration")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetHTTPAddr() string             { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool           { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string        { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool         { return c.CORSAllowCreds }
func (c *Config) GetHubSpotAccessToken() string   { return c.HubSpotAccessToken }
func (c *Config) GetHubSpotBaseURL() string       { return c.HubSpotBaseURL }
func (c *Config) GetHubSpotTimeout() time.Duration { return c.HubSpotTimeout }
func (c *Config) GetRedisURL() string             { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool       { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string       { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int        { return c.AsynqConcurrency }
func (c *Config) GetAttributionTTL() time.Duration { return c.AttributionTTL }
func (c *Config) GetMeetingBaseURL() string       { return c.MeetingBaseURL }
func (c *Config) GetWebhookSecret() string        { return c.WebhookSecret }

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func envDuration(key, fallback string) (time.Duration, error) {
	value := getEnv(key, fallback)
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}

func envInt(key, fallback string) (int, error) {
	value := getEnv(key, fallback)
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
