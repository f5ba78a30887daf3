package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppEnv       string
	Port         string
	BaseURL      string
	DatabaseURL  string
	RedisURL     string
	SecretKey    string
	GroqAPIKey   string
	GiphyAPIKey  string
	MailServer   string
	MailPort     int
	MailUsername string
	MailPassword string
	LogLevel     string
	LogFormat    string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:       getEnv("APP_ENV", "development"),
		Port:         getEnv("PORT", "8080"),
		BaseURL:      getEnv("BASE_URL", ""),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisURL:     getEnv("REDIS_URL", ""),
		SecretKey:    getEnv("SECRET_KEY", ""),
		GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
		GiphyAPIKey:  getEnv("GIPHY_API_KEY", ""),
		MailServer:   getEnv("MAIL_SERVER", "smtp.gmail.com"),
		MailUsername: getEnv("MAIL_USERNAME", ""),
		MailPassword: getEnv("MAIL_PASSWORD", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
	}

	port, err := strconv.Atoi(getEnv("MAIL_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("MAIL_PORT must be a number: %w", err)
	}
	cfg.MailPort = port

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required")
	}

	// Mail config: username and password must be set together
	if (cfg.MailUsername == "") != (cfg.MailPassword == "") {
		return nil, fmt.Errorf("MAIL_USERNAME and MAIL_PASSWORD must be set together")
	}

	cfg.DatabaseURL = NormalizeDatabaseURL(cfg.DatabaseURL)

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}

	return cfg, nil
}

// NormalizeDatabaseURL rewrites the legacy postgres:// scheme emitted by some
// managed database providers to postgresql://. The driver fails on the short
// form, which used to be a recurring deployment support case.
func NormalizeDatabaseURL(databaseURL string) string {
	if rest, ok := strings.CutPrefix(databaseURL, "postgres://"); ok {
		slog.Warn("DATABASE_URL uses postgres:// scheme, rewriting to postgresql://")
		return "postgresql://" + rest
	}
	return databaseURL
}

// MailConfigured reports whether outbound mail credentials are present.
func (c *Config) MailConfigured() bool {
	return c.MailUsername != "" && c.MailPassword != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
