package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/minutebridge-backend/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock { return &fakeClock{t: time.Unix(1700000000, 0)} }

func TestMemoryWindowAdmitsUpToCeiling(t *testing.T) {
	clock := newClock()
	m := NewMemory(nil).WithClock(clock.Now)
	p := Policy{Name: "test", MaxPerWindow: 3, Window: time.Second, MaxPerHour: 100}

	admitted := 0
	var last Decision
	for i := 0; i < 4; i++ {
		d, err := m.CheckAndRecord(context.Background(), "1.2.3.4", p)
		if err != nil {
			t.Fatalf("CheckAndRecord: %v", err)
		}
		if d.Allowed {
			admitted++
		}
		last = d
		clock.Advance(100 * time.Millisecond)
	}
	if admitted != 3 {
		t.Fatalf("admitted got=%d want=3", admitted)
	}
	if last.Allowed || !errors.Is(last.Reason, ErrWindowExceeded) {
		t.Fatalf("last decision got=%+v want window rejection", last)
	}
	if last.RetryAfter <= 0 || last.RetryAfterSeconds() != 1 {
		t.Fatalf("retryAfter got=%s (%ds)", last.RetryAfter, last.RetryAfterSeconds())
	}
	if last.RetryAfter != 700*time.Millisecond {
		t.Fatalf("retryAfter got=%s want=700ms", last.RetryAfter)
	}
}

func TestMemoryWindowSlides(t *testing.T) {
	clock := newClock()
	m := NewMemory(nil).WithClock(clock.Now)
	p := Policy{Name: "test", MaxPerWindow: 2, Window: time.Second}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if d, _ := m.CheckAndRecord(ctx, "a", p); !d.Allowed {
			t.Fatalf("attempt %d rejected", i)
		}
	}
	if d, _ := m.CheckAndRecord(ctx, "a", p); d.Allowed {
		t.Fatalf("third attempt admitted")
	}
	clock.Advance(time.Second + time.Millisecond)
	d, _ := m.CheckAndRecord(ctx, "a", p)
	if !d.Allowed || d.Remaining != 1 {
		t.Fatalf("after window got=%+v want admitted with remaining=1", d)
	}
}

func TestMemoryHourlyCeiling(t *testing.T) {
	clock := newClock()
	m := NewMemory(nil).WithClock(clock.Now)
	p := Policy{Name: "test", MaxPerWindow: 10, Window: time.Second, MaxPerHour: 2}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if d, _ := m.CheckAndRecord(ctx, "a", p); !d.Allowed {
			t.Fatalf("attempt %d rejected", i)
		}
		clock.Advance(2 * time.Second)
	}
	d, _ := m.CheckAndRecord(ctx, "a", p)
	if d.Allowed || !errors.Is(d.Reason, ErrHourlyExceeded) {
		t.Fatalf("got=%+v want hourly rejection", d)
	}
	if want := time.Hour - 4*time.Second; d.RetryAfter != want {
		t.Fatalf("retryAfter got=%s want=%s", d.RetryAfter, want)
	}
	if !domain.IsKind(d.Err(), domain.KindRateLimitHourly) {
		t.Fatalf("Err kind got=%v", domain.KindOf(d.Err()))
	}
}

func TestMemoryIdentifiersAndPoliciesAreIsolated(t *testing.T) {
	m := NewMemory(nil).WithClock(newClock().Now)
	p := Policy{Name: "upload", MaxPerWindow: 1, Window: time.Minute}
	q := Policy{Name: "extraction", MaxPerWindow: 1, Window: time.Minute}
	ctx := context.Background()

	for _, tc := range []struct {
		id string
		p  Policy
	}{{"a", p}, {"b", p}, {"a", q}} {
		if d, _ := m.CheckAndRecord(ctx, tc.id, tc.p); !d.Allowed {
			t.Fatalf("id=%s policy=%s rejected", tc.id, tc.p.Name)
		}
	}
	if d, _ := m.CheckAndRecord(ctx, "a", p); d.Allowed {
		t.Fatalf("second upload from a admitted")
	}
}

func TestMemorySweepDropsIdleBuckets(t *testing.T) {
	clock := newClock()
	m := NewMemory(nil).WithClock(clock.Now)
	p := Policy{Name: "test", MaxPerWindow: 5, Window: time.Minute}
	_, _ = m.CheckAndRecord(context.Background(), "a", p)
	_, _ = m.CheckAndRecord(context.Background(), "b", p)

	if n := m.Sweep(clock.Now()); n != 0 {
		t.Fatalf("fresh sweep removed=%d want=0", n)
	}
	clock.Advance(2 * time.Hour)
	if n := m.Sweep(clock.Now()); n != 2 {
		t.Fatalf("idle sweep removed=%d want=2", n)
	}
	if m.Len() != 0 {
		t.Fatalf("len got=%d want=0", m.Len())
	}
	if d, _ := m.CheckAndRecord(context.Background(), "a", p); !d.Allowed {
		t.Fatalf("swept bucket should start fresh")
	}
}

func TestMemoryConcurrentAdmissionsNeverExceedCeiling(t *testing.T) {
	m := NewMemory(nil)
	p := Policy{Name: "test", MaxPerWindow: 10, Window: time.Minute}
	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, err := m.CheckAndRecord(context.Background(), "shared", p); err == nil && d.Allowed {
				atomic.AddInt64(&admitted, 1)
			}
		}()
		if i%10 == 0 {
			go m.Sweep(time.Now())
		}
	}
	wg.Wait()
	if admitted != 10 {
		t.Fatalf("admitted got=%d want=10", admitted)
	}
}

func TestMemoryRejectsInvalidPolicy(t *testing.T) {
	m := NewMemory(nil)
	if _, err := m.CheckAndRecord(context.Background(), "a", Policy{Name: "bad"}); err == nil {
		t.Fatalf("expected validation error")
	}
}
