package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port        string `env:"PORT,default=8083"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	PublicURL   string `env:"PUBLIC_URL,default=http://localhost:3000"`

	Log     LogConfig
	Auth    AuthConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Payment PaymentConfig
	AI      AIConfig
	Geo     GeoConfig
	Email   EmailConfig
	Limits  LimitConfig

	// ExpirySchedule is the cron spec for the subscription expiry job.
	ExpirySchedule string `env:"EXPIRY_SCHEDULE,default=@hourly"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=text"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,default=24h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI,default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,default=rental_marketplace"`
}

type RedisConfig struct {
	URL      string        `env:"REDIS_URL,default=redis://localhost:6379/0"`
	DraftTTL time.Duration `env:"DRAFT_TTL,default=24h"`
}

type PaymentConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	PriceID       string `env:"STRIPE_PRICE_ID"`
	PlanDays      int    `env:"LISTING_PLAN_DAYS,default=30"`
}

type AIConfig struct {
	BaseURL string        `env:"AI_BASE_URL,default=https://api.openai.com/v1"`
	APIKey  string        `env:"AI_API_KEY"`
	Model   string        `env:"AI_MODEL,default=gpt-4o-mini"`
	Timeout time.Duration `env:"AI_TIMEOUT,default=30s"`
}

type GeoConfig struct {
	BaseURL     string `env:"GEO_BASE_URL,default=https://api.mapbox.com"`
	AccessToken string `env:"GEO_ACCESS_TOKEN"`
}

type EmailConfig struct {
	BaseURL string `env:"EMAIL_BASE_URL,default=https://api.resend.com"`
	APIKey  string `env:"EMAIL_API_KEY"`
	From    string `env:"EMAIL_FROM,default=Rentals <no-reply@example.com>"`
}

type LimitConfig struct {
	RequestsPerSecond int `env:"RATE_LIMIT_RPS,default=10"`
	Burst             int `env:"RATE_LIMIT_BURST,default=20"`
}

// Load reads the .env file (if present) and decodes the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envdecode cannot express as tags.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("config: JWT_SECRET must be at least 32 bytes")
	}
	if c.Payment.PlanDays <= 0 {
		return fmt.Errorf("config: LISTING_PLAN_DAYS must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unsupported LOG_FORMAT %q", c.Log.Format)
	}
	return nil
}

// PlanDuration is how long a paid listing stays published.
func (c *Config) PlanDuration() time.Duration {
	return time.Duration(c.Payment.PlanDays) * 24 * time.Hour
}
