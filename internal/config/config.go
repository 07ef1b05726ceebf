// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Cheertaboi/nexu-webshop/internal/email"
	"github.com/Cheertaboi/nexu-webshop/pkg/db"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type RateLimit struct {
	Limit  int           `env:"LIMIT"`
	Window time.Duration `env:"WINDOW"`
}

type Config struct {
	HTTPAddr string `env:"NEXU_HTTP_ADDR" envDefault:":8080"`
	Storage  string `env:"NEXU_STORAGE" envDefault:"postgres"`

	JWTSecret string `env:"NEXU_JWT_SECRET"`

	StripeSecretKey     string `env:"NEXU_STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"NEXU_STRIPE_WEBHOOK_SECRET"`
	Currency            string `env:"NEXU_CURRENCY" envDefault:"huf"`
	CurrencyMinorFactor int64  `env:"NEXU_CURRENCY_MINOR_FACTOR" envDefault:"100"`

	StaleOrderAfter time.Duration `env:"NEXU_STALE_ORDER_AFTER" envDefault:"60m"`
	CleanupInterval time.Duration `env:"NEXU_CLEANUP_INTERVAL" envDefault:"15m"`
	CleanupWorkers  int           `env:"NEXU_CLEANUP_WORKERS" envDefault:"4"`

	CouponRate   RateLimit `envPrefix:"NEXU_RATE_COUPON_"`
	CheckoutRate RateLimit `envPrefix:"NEXU_RATE_CHECKOUT_"`

	SettingsCacheTTL time.Duration `env:"NEXU_SETTINGS_CACHE_TTL" envDefault:"5m"`
	OTelEndpoint     string        `env:"NEXU_OTEL_ENDPOINT"`

	SMTP     email.SMTPConfig
	Postgres db.PostgresConfig
}

func Load() (Config, error) {
	cfg := Config{
		CouponRate:   RateLimit{Limit: 10, Window: time.Minute},
		CheckoutRate: RateLimit{Limit: 5, Window: time.Minute},
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("parse env: NEXU_STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage)
	}
	if c.CurrencyMinorFactor <= 0 {
		return fmt.Errorf("parse env: NEXU_CURRENCY_MINOR_FACTOR must be positive")
	}
	for name, rl := range map[string]RateLimit{"COUPON": c.CouponRate, "CHECKOUT": c.CheckoutRate} {
		if rl.Limit <= 0 || rl.Window <= 0 {
			return fmt.Errorf("parse env: NEXU_RATE_%s_LIMIT and _WINDOW must be positive", name)
		}
	}
	if c.StaleOrderAfter <= 0 || c.CleanupInterval <= 0 {
		return fmt.Errorf("parse env: cleanup durations must be positive")
	}
	return nil
}

// PaymentsEnabled reports whether the Stripe gateway can be built.
func (c Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != "" && c.StripeWebhookSecret != ""
}

func (c Config) SMTPEnabled() bool { return c.SMTP.Host != "" }
