// Package config reads process settings from the environment, loading a .env
// file first when one exists.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
)

type Config struct {
	ServiceName    string `validate:"required"`
	Env            string `validate:"required"`
	LogLevel       string `validate:"omitempty,oneof=debug info warn error"`
	OpsAddr        string `validate:"required"`
	StorageBackend string `validate:"oneof=mysql memory"`

	DB    DB
	Redis Redis

	GuestCartTTL      time.Duration `validate:"gt=0"`
	CurrencyTimeout   time.Duration `validate:"gt=0"`
	CurrencyRateCache time.Duration `validate:"gt=0"`
	DefaultTaxRate    decimal.Decimal
	CheckoutLockTTL   time.Duration `validate:"gt=0"`

	PubSubProjectID string
	PubSubTopic     string `validate:"required_with=PubSubProjectID"`

	CartPurgeInterval time.Duration `validate:"gt=0"`
	CartPurgeAfter    time.Duration `validate:"gt=0"`
}

type DB struct {
	User            string `validate:"required_if=Enabled true"`
	Password        string
	Host            string `validate:"required_if=Enabled true"`
	Port            string `validate:"required_if=Enabled true"`
	Name            string `validate:"required_if=Enabled true"`
	MaxOpenConns    int    `validate:"gte=1"`
	MaxIdleConns    int    `validate:"gte=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration
	Enabled         bool
}

// Redis is optional; an empty Address selects the in-process fallbacks.
type Redis struct {
	Address  string `validate:"omitempty,hostname_port"`
	Password string
	DB       int `validate:"gte=0"`
}

var validate = validator.New()

// Load reads the environment (after an optional .env) and validates it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (Config, error) {
	r := &reader{}
	cfg := Config{
		ServiceName:    r.str("SERVICE_NAME", "storefront"),
		Env:            r.str("ENV", "dev"),
		LogLevel:       strings.ToLower(r.str("LOG_LEVEL", "")),
		OpsAddr:        r.str("OPS_ADDR", ":9090"),
		StorageBackend: strings.ToLower(r.str("STORAGE_BACKEND", BackendMemory)),
		DB: DB{
			User:            r.str("DB_USER", ""),
			Password:        r.str("DB_PASSWORD", ""),
			Host:            r.str("DB_HOST", ""),
			Port:            r.str("DB_PORT", "3306"),
			Name:            r.str("DB_NAME", ""),
			MaxOpenConns:    r.int("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    r.int("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: r.seconds("DB_CONN_MAX_LIFETIME_SECONDS", 300),
		},
		Redis: Redis{
			Address:  r.str("REDIS_ADDRESS", ""),
			Password: r.str("REDIS_PASSWORD", ""),
			DB:       r.int("REDIS_DB", 0),
		},
		GuestCartTTL:      time.Duration(r.int("GUEST_CART_TTL_HOURS", 720)) * time.Hour,
		CurrencyTimeout:   time.Duration(r.int("CURRENCY_TIMEOUT_MS", 300)) * time.Millisecond,
		CurrencyRateCache: r.seconds("CURRENCY_RATE_CACHE_SECONDS", 3600),
		DefaultTaxRate:    r.decimal("DEFAULT_TAX_RATE", "0.18"),
		CheckoutLockTTL:   r.seconds("CHECKOUT_LOCK_TTL_SECONDS", 30),
		PubSubProjectID:   r.str("PUBSUB_PROJECT_ID", ""),
		PubSubTopic:       r.str("PUBSUB_TOPIC", "order-notifications"),
		CartPurgeInterval: time.Duration(r.int("CART_PURGE_INTERVAL_MINUTES", 60)) * time.Minute,
		CartPurgeAfter:    time.Duration(r.int("CART_PURGE_AFTER_DAYS", 30)) * 24 * time.Hour,
	}
	cfg.DB.Enabled = cfg.StorageBackend == BackendMySQL
	if err := errors.Join(r.errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.DefaultTaxRate.IsNegative() {
		return Config{}, errors.New("config: DEFAULT_TAX_RATE must not be negative")
	}
	return cfg, nil
}

// reader collects parse errors so every bad key is reported at once.
type reader struct {
	errs []error
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) seconds(key string, def int) time.Duration {
	return time.Duration(r.int(key, def)) * time.Second
}

func (r *reader) decimal(key, def string) decimal.Decimal {
	v := r.str(key, def)
	d, err := decimal.NewFromString(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return decimal.RequireFromString(def)
	}
	return d
}
