package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/minutebridge-backend/internal/platform/logger"
)

type bucket struct {
	mu      sync.Mutex
	stamps  []time.Time
	horizon time.Duration
	dead    bool
}

// prune drops timestamps at or before now-horizon. Stamps are appended in
// order so the kept tail is contiguous.
func (b *bucket) prune(now time.Time) {
	cutoff := now.Add(-b.horizon)
	i := 0
	for i < len(b.stamps) && !b.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		b.stamps = append(b.stamps[:0], b.stamps[i:]...)
	}
}

// Memory keeps one sliding window per (policy, identifier) in process memory.
// State is lost on restart and is not shared between replicas.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
	log     *logger.Logger
}

func NewMemory(log *logger.Logger) *Memory {
	if log == nil {
		log = logger.NewNop()
	}
	return &Memory{buckets: map[string]*bucket{}, now: time.Now, log: log.With("component", "RateLimitMemory")}
}

// WithClock replaces the time source. Tests only.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func bucketKey(identifier string, p Policy) string {
	return p.Name + "|" + identifier
}

func (m *Memory) acquire(key string, horizon time.Duration) *bucket {
	for {
		m.mu.Lock()
		b := m.buckets[key]
		if b == nil {
			b = &bucket{horizon: horizon}
			m.buckets[key] = b
		}
		m.mu.Unlock()

		b.mu.Lock()
		if !b.dead {
			return b
		}
		// swept between lookup and lock; retry against the fresh entry
		b.mu.Unlock()
	}
}

func (m *Memory) CheckAndRecord(_ context.Context, identifier string, p Policy) (Decision, error) {
	if err := p.Validate(); err != nil {
		return Decision{}, err
	}
	now := m.now()
	b := m.acquire(bucketKey(identifier, p), p.horizon())
	defer b.mu.Unlock()

	if h := p.horizon(); h > b.horizon {
		b.horizon = h
	}
	b.prune(now)
	return decide(now, b.stamps, p, func() { b.stamps = append(b.stamps, now) }), nil
}

// decide applies the sliding-window rule to ordered, pruned stamps and calls
// record only on admission.
func decide(now time.Time, stamps []time.Time, p Policy, record func()) Decision {
	windowStart := now.Add(-p.Window)
	firstInWindow := len(stamps)
	for i, ts := range stamps {
		if ts.After(windowStart) {
			firstInWindow = i
			break
		}
	}
	inWindow := len(stamps) - firstInWindow
	if inWindow >= p.MaxPerWindow {
		// the oldest stamp that keeps the window full has to age out
		oldest := stamps[len(stamps)-p.MaxPerWindow]
		reset := oldest.Add(p.Window)
		return Decision{Remaining: 0, RetryAfter: reset.Sub(now), ResetAt: reset, Reason: ErrWindowExceeded}
	}

	if p.MaxPerHour > 0 {
		hourStart := now.Add(-hour)
		inHour := 0
		for _, ts := range stamps {
			if ts.After(hourStart) {
				inHour++
			}
		}
		if inHour >= p.MaxPerHour {
			oldest := stamps[len(stamps)-p.MaxPerHour]
			reset := oldest.Add(hour)
			return Decision{Remaining: 0, RetryAfter: reset.Sub(now), ResetAt: reset, Reason: ErrHourlyExceeded}
		}
	}

	record()
	return Decision{
		Allowed:   true,
		Remaining: p.MaxPerWindow - inWindow - 1,
		ResetAt:   now.Add(p.Window),
	}
}

// Sweep prunes every bucket and drops the ones left empty. It returns the
// number of buckets removed.
func (m *Memory) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, b := range m.buckets {
		b.mu.Lock()
		b.prune(now)
		if len(b.stamps) == 0 {
			b.dead = true
			delete(m.buckets, key)
			removed++
		}
		b.mu.Unlock()
	}
	return removed
}

// Len reports the number of live buckets.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// Run sweeps on every tick until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := m.Sweep(m.now()); n > 0 {
				m.log.Debug("rate limit buckets swept", "removed", n)
			}
		}
	}
}
