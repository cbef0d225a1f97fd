// Package gormstore is the MySQL backend: durable carts, orders, the stock
// ledger, loyalty accounts and the read models the checkout core consults.
package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/observability"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	User            string
	Password        string
	Host            string
	Port            string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Attempts bounds connection retries; zero means five.
	Attempts int
}

func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// Open connects with exponential backoff, tunes the pool and installs the
// OpenTelemetry plugin.
func Open(ctx context.Context, cfg Config, log observability.Logger) (*gorm.DB, error) {
	if log == nil {
		log = observability.NopLogger()
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 5
	}

	var (
		db  *gorm.DB
		err error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err = OpenDSN(cfg.DSN())
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Warn("db_connect_failed",
			observability.F("attempt", attempt),
			observability.F("retry_in", sleep.String()),
			observability.Err(err),
		)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gormstore: pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("gormstore: ping: %w", err)
	}
	log.Info("db_connected", observability.F("host", cfg.Host), observability.F("database", cfg.Name))
	return db, nil
}

// OpenDSN opens a connection without retry or pool tuning.
func OpenDSN(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("gormstore: otelgorm plugin: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table of the store.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(
		&tenantRecord{},
		&productRecord{},
		&variantRecord{},
		&shippingMethodRecord{},
		&exchangeRateRecord{},
		&cartRecord{},
		&cartLineRecord{},
		&orderRecord{},
		&orderLineRecord{},
		&movementRecord{},
		&loyaltyProgramRecord{},
		&loyaltyAccountRecord{},
		&loyaltyTransactionRecord{},
	)
}
