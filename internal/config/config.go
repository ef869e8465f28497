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
	Env            string
	HTTPAddr       string
	DatabaseURL    string
	RedisURL       string
	JWTSecret      string
	AccessTokenTTL time.Duration

	// TaxRateBps is the quotation tax rate in basis points (2000 = 20%).
	TaxRateBps int
	// StagingTTL bounds the lifetime of scan-staging and handoff keys.
	StagingTTL time.Duration
	// PhoneRegion is the default region for phone normalization.
	PhoneRegion string

	CORSAllowAll bool
	CORSOrigins  []string

	RateLimitRPS   float64
	RateLimitBurst int

	AsynqQueue       string
	AsynqConcurrency int

	EmailEnabled  bool
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	EmailFrom     string
	EmailFromName string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true")

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		AccessTokenTTL:   mustDuration(getEnv("JWT_ACCESS_TTL", "12h")),
		TaxRateBps:       mustInt(getEnv("TAX_RATE_BPS", "2000")),
		StagingTTL:       mustDuration(getEnv("STAGING_TTL", "24h")),
		PhoneRegion:      getEnv("PHONE_REGION", "IN"),
		CORSAllowAll:     corsAllowAll,
		CORSOrigins:      corsOrigins,
		RateLimitRPS:     mustFloat(getEnv("RATE_LIMIT_RPS", "25")),
		RateLimitBurst:   mustInt(getEnv("RATE_LIMIT_BURST", "50")),
		AsynqQueue:       getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		EmailEnabled:     emailEnabled,
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFrom:        getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Sales Ops"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.TaxRateBps < 0 || cfg.TaxRateBps > 10000 {
		return nil, fmt.Errorf("TAX_RATE_BPS must be between 0 and 10000")
	}
	if cfg.EmailEnabled && (cfg.SMTPHost == "" || cfg.EmailFrom == "") {
		return nil, fmt.Errorf("SMTP_HOST and EMAIL_FROM_ADDRESS are required when EMAIL_ENABLED is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func mustFloat(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
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
