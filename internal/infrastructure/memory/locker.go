package memory

import (
	"context"
	"sync"
	"time"
)

// Locker is an in-process mutual exclusion per key. Lock waits until the key
// is free or ctx is done; the ttl is ignored since holders cannot crash away.
type Locker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocker() *Locker {
	return &Locker{slots: make(map[string]chan struct{})}
}

func (l *Locker) Lock(ctx context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-slot })
		return nil
	}, nil
}
