package db

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type PostgresConfig struct {
	Host         string `env:"DB_HOST" envDefault:"localhost"`
	Port         int    `env:"DB_PORT" envDefault:"5432"`
	User         string `env:"DB_USER" envDefault:"postgres"`
	Password     string `env:"DB_PASSWORD"`
	DBName       string `env:"DB_NAME" envDefault:"nexu_webshop"`
	SSLMode      string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
}

func LoadPostgresConfig() (PostgresConfig, error) {
	var cfg PostgresConfig
	if err := env.Parse(&cfg); err != nil {
		return PostgresConfig{}, fmt.Errorf("parse db env: %w", err)
	}
	return cfg, nil
}

// DSN renders the lib/pq connection URL.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}
