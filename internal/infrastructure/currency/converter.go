// Package currency converts amounts using exchange rates from a rate source,
// caching looked-up rates in Redis.
package currency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const DefaultCacheTTL = 10 * time.Minute

// RateSource returns how many units of to one unit of from buys.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

type Converter struct {
	source RateSource
	cache  redis.UniversalClient
	ttl    time.Duration
}

// NewConverter builds a converter; cache may be nil to always ask the source.
func NewConverter(source RateSource, cache redis.UniversalClient, ttl time.Duration) *Converter {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Converter{source: source, cache: cache, ttl: ttl}
}

func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	rate, err := c.rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

func rateKey(from, to string) string {
	return fmt.Sprintf("fx:%s:%s", from, to)
}

func (c *Converter) rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, rateKey(from, to)).Result()
		switch {
		case err == nil:
			if rate, perr := decimal.NewFromString(cached); perr == nil {
				return rate, nil
			}
		case !errors.Is(err, redis.Nil):
			if ctx.Err() != nil {
				return decimal.Zero, ctx.Err()
			}
		}
	}

	rate, err := c.source.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("currency: rate %s/%s: %w", from, to, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("currency: rate %s/%s is not positive", from, to)
	}
	if c.cache != nil {
		// Losing the cache write only costs another source lookup.
		_ = c.cache.Set(ctx, rateKey(from, to), rate.String(), c.ttl).Err()
	}
	return rate, nil
}
