package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/minutebridge-backend/internal/domain"
)

// Observer receives the outcome of every guarded call.
type Observer func(capability string, elapsed time.Duration, err error)

// Guard bounds outbound calls to one external capability: a per-call timeout
// plus a process-wide token bucket. It never retries.
type Guard struct {
	name     string
	timeout  time.Duration
	limiter  *rate.Limiter
	observer Observer
}

type Config struct {
	Timeout time.Duration
	// RPS <= 0 disables throttling.
	RPS   float64
	Burst int
}

func NewGuard(name string, cfg Config, observer Observer) *Guard {
	g := &Guard{name: name, timeout: cfg.Timeout, observer: observer}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return g
}

func (g *Guard) Name() string {
	if g == nil {
		return ""
	}
	return g.name
}

// Do runs fn with the guard's deadline. A deadline hit inside the guard is
// reported as domain.ErrUpstreamTimeout; caller cancellation is passed through
// untouched so handlers can tell a disconnect from a slow upstream.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Wait fails fast when the deadline cannot cover the reservation.
			return fmt.Errorf("%s: throttled: %w", g.name, domain.ErrUpstreamTimeout)
		}
	}

	callCtx := ctx
	cancel := func() {}
	if g.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
	}
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%s: %w (after %s): %v", g.name, domain.ErrUpstreamTimeout, g.timeout, err)
	}
	if g.observer != nil {
		g.observer(g.name, time.Since(start), err)
	}
	return err
}
