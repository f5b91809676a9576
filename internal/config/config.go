package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Cookie    CookieConfig
	Locale    LocaleConfig
	Pages     PagesConfig
	Log       LogConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	DynamoDB  DynamoDBConfig
	Audit     AuditConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// TrustedProxies lists IPs or CIDRs whose X-Forwarded-For is honored.
	TrustedProxies []string
}

type BackendConfig struct {
	// InternalURL is used for server-side calls.
	InternalURL string
	// PublicURL is the browser-visible backend base. Informational only.
	PublicURL string
	// Timeout of zero means no timeout beyond the transport defaults.
	Timeout time.Duration
}

type CookieConfig struct {
	Secure bool
}

type LocaleConfig struct {
	Locales       []string
	DefaultLocale string
}

type PagesConfig struct {
	Upstream string
}

type LogConfig struct {
	Level logrus.Level
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type RateLimitConfig struct {
	LoginLimit  int
	LoginWindow time.Duration
}

type DynamoDBConfig struct {
	Endpoint string
	Region   string
}

type AuditConfig struct {
	TableName string
	Retention time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "3000"),
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES", nil),
		},
		Backend: BackendConfig{
			InternalURL: strings.TrimRight(getEnv("BACKEND_INTERNAL", "http://127.0.0.1:8080"), "/"),
			PublicURL:   strings.TrimRight(getEnv("NEXT_PUBLIC_API_BASE", "http://localhost:8000"), "/"),
			Timeout:     getEnvAsDuration("BACKEND_TIMEOUT", 0),
		},
		Cookie: CookieConfig{
			Secure: getEnvAsBool("COOKIE_SECURE", true),
		},
		Locale: LocaleConfig{
			Locales:       getEnvAsList("LOCALES", []string{"en", "fr", "de"}),
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		Pages: PagesConfig{
			Upstream: strings.TrimRight(getEnv("PAGES_UPSTREAM", ""), "/"),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			LoginLimit:  getEnvAsInt("LOGIN_RATE_LIMIT", 10),
			LoginWindow: getEnvAsDuration("LOGIN_RATE_WINDOW", time.Minute),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint: getEnv("DYNAMODB_ENDPOINT", ""),
			Region:   getEnv("DYNAMODB_REGION", "us-east-1"),
		},
		Audit: AuditConfig{
			TableName: getEnv("AUDIT_TABLE_NAME", ""),
			Retention: getEnvAsDuration("AUDIT_RETENTION", 90*24*time.Hour),
		},
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.Log.Level = level

	if err := validateBaseURL("BACKEND_INTERNAL", cfg.Backend.InternalURL); err != nil {
		return nil, err
	}

	if cfg.Pages.Upstream != "" {
		if err := validateBaseURL("PAGES_UPSTREAM", cfg.Pages.Upstream); err != nil {
			return nil, err
		}
	}

	if len(cfg.Locale.Locales) == 0 {
		return nil, fmt.Errorf("LOCALES must name at least one locale")
	}

	if !contains(cfg.Locale.Locales, cfg.Locale.DefaultLocale) {
		return nil, fmt.Errorf("DEFAULT_LOCALE %q is not one of LOCALES %v", cfg.Locale.DefaultLocale, cfg.Locale.Locales)
	}

	return cfg, nil
}

func validateBaseURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", name, raw)
	}
	return nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
