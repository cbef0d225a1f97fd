package workerpresentation

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"
)

const cartPurger = "cart-purger"

// Purger retires carts that stayed inactive for longer than a cutoff.
type Purger interface {
	PurgeInactive(ctx context.Context, olderThan time.Duration) (int64, error)
}

// CartPurger runs a Purger on a fixed interval until its context ends.
type CartPurger struct {
	purger    Purger
	interval  time.Duration
	olderThan time.Duration
	log       observability.Logger
}

func NewCartPurger(purger Purger, interval, olderThan time.Duration, tel observability.Observability) *CartPurger {
	if tel == nil {
		tel = observability.Nop()
	}
	return &CartPurger{
		purger:    purger,
		interval:  interval,
		olderThan: olderThan,
		log:       tel.Logger().With(observability.F("service", cartPurger)),
	}
}

// Run blocks, sweeping once per interval. It returns when ctx is done.
func (p *CartPurger) Run(ctx context.Context) {
	if p.purger == nil || p.interval <= 0 {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep purges once; failures are logged and retried on the next tick.
func (p *CartPurger) Sweep(ctx context.Context) {
	ctx = logctx.With(ctx, p.log)
	n, err := p.purger.PurgeInactive(ctx, p.olderThan)
	if err != nil {
		p.log.Warn("cart_purge_failed", observability.Err(err))
		return
	}
	if n > 0 {
		p.log.Info("cart_purge_done", observability.F("purged", n))
	}
}
