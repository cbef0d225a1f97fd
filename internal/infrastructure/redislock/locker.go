// Package redislock provides cross-process checkout locks on Redis.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "lock:"
	DefaultBackoff = 50 * time.Millisecond
	DefaultRetries = 40
)

var ErrNotObtained = errors.New("redislock: lock held by another process")

type Locker struct {
	client  *redislock.Client
	backoff time.Duration
	retries int
}

func New(rdb redis.UniversalClient) *Locker {
	return &Locker{client: redislock.New(rdb), backoff: DefaultBackoff, retries: DefaultRetries}
}

// WithRetry sets how often and how far apart Lock retries a held key.
func (l *Locker) WithRetry(backoff time.Duration, retries int) *Locker {
	l.backoff, l.retries = backoff, retries
	return l
}

// Lock obtains key for ttl, retrying while another holder has it. The
// returned func releases the lock; releasing an expired lock is not an error.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, keyPrefix+key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.backoff), l.retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redislock: obtain %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("redislock: release %s: %w", key, err)
		}
		return nil
	}, nil
}
