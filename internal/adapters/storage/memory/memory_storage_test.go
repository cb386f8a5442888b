package memory

import (
	"context"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStorage_ConcurrentIncrements(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Increment(ctx, "k", time.Minute); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	v, found, err := s.Get(ctx, "k")
	if err != nil || !found || v != 100 {
		t.Fatalf("expected 100, got v=%d found=%v err=%v", v, found, err)
	}
}

func TestStorage_IncrementKeepsOriginalTTL(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	s := NewStorageWithClock(c.Now)
	ctx := context.Background()

	if _, err := s.Increment(ctx, "k", time.Hour); err != nil {
		t.Fatalf("increment: %v", err)
	}
	c.Advance(30 * time.Minute)
	if _, err := s.Increment(ctx, "k", time.Hour); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if ttl := s.TTL("k"); ttl != 30*time.Minute {
		t.Fatalf("expected ttl untouched at 30m, got %s", ttl)
	}

	c.Advance(30 * time.Minute)
	if _, found, _ := s.Get(ctx, "k"); found {
		t.Fatalf("expected key to expire with the original window")
	}
	if v, _ := s.Increment(ctx, "k", time.Hour); v != 1 {
		t.Fatalf("expected a fresh window to restart at 1, got %d", v)
	}
}

func TestStorage_SetWithTTL(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	s := NewStorageWithClock(c.Now)
	ctx := context.Background()

	if err := s.SetWithTTL(ctx, "marker", 42, 10*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, found, _ := s.Get(ctx, "marker"); !found || v != 42 {
		t.Fatalf("expected 42, got %d found=%v", v, found)
	}
	if err := s.SetWithTTL(ctx, "marker", 1, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, found, _ := s.Get(ctx, "marker"); found {
		t.Fatalf("expected non-positive ttl to delete the key")
	}
	if _, err := s.Increment(ctx, "k", 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}

func TestStorage_Cleanup(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	s := NewStorageWithClock(c.Now)
	ctx := context.Background()

	_, _ = s.Increment(ctx, "short", time.Second)
	_, _ = s.Increment(ctx, "long", time.Hour)
	c.Advance(2 * time.Second)
	s.Cleanup()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items["short"]; ok {
		t.Fatalf("expected expired key removed")
	}
	if _, ok := s.items["long"]; !ok {
		t.Fatalf("expected live key kept")
	}
}
