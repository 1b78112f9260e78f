package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Server
	Port     int    `mapstructure:"PORT"`
	Env      string `mapstructure:"APP_ENV"` // development | production
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Allowed origin of the front-end ("*" in development)
	CORSOrigin string `mapstructure:"CORS_ORIGIN"`

	// Remote REST backend (Django)
	APIURL string `mapstructure:"API_URL"`

	// Circuit breaker in front of the backend; 0 failures disables it
	BackendCBFailures    int `mapstructure:"BACKEND_CB_FAILURES"`
	BackendCBOpenSeconds int `mapstructure:"BACKEND_CB_OPEN_SECONDS"`

	// Redis (optional); empty disables cross-instance event fan-out
	RedisURL      string `mapstructure:"REDIS_URL"`
	EventsChannel string `mapstructure:"EVENTS_CHANNEL"`

	// Page sessions
	SessionTTLMinutes int `mapstructure:"SESSION_TTL_MINUTES"`

	// Rate limiting (per client IP)
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	// Dashboard
	TopProductos int `mapstructure:"TOP_PRODUCTOS"`
}

// SessionTTL returns the idle lifetime of a page session.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Sensible defaults for development
	v.SetDefault("PORT", 8080)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGIN", "*")
	v.SetDefault("API_URL", "http://localhost:8000/api")
	v.SetDefault("BACKEND_CB_FAILURES", 5)
	v.SetDefault("BACKEND_CB_OPEN_SECONDS", 30)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("EVENTS_CHANNEL", "papeleria:mutaciones")
	v.SetDefault("SESSION_TTL_MINUTES", 30)
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("TOP_PRODUCTOS", 3)

	// Optional .env file for local development; does not fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
