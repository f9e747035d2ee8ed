package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProviderSetGet(t *testing.T) {
	p := NewMemoryProvider(10)
	ctx := context.Background()

	if err := p.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := p.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func TestMemoryProviderMiss(t *testing.T) {
	p := NewMemoryProvider(10)
	if _, err := p.Get(context.Background(), "absent"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryProviderTTLExpiry(t *testing.T) {
	p := NewMemoryProvider(10)
	current := time.Now()
	p.now = func() time.Time { return current }
	ctx := context.Background()

	if err := p.Set(ctx, "k", []byte("v"), 30*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	current = current.Add(29 * time.Minute)
	if _, err := p.Get(ctx, "k"); err != nil {
		t.Fatalf("entry expired early: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := p.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss after TTL, got %v", err)
	}
}

func TestMemoryProviderEvictsLeastRecentlyUsed(t *testing.T) {
	p := NewMemoryProvider(2)
	current := time.Now()
	p.now = func() time.Time { return current }
	ctx := context.Background()

	p.Set(ctx, "a", []byte("1"), 0)
	current = current.Add(time.Second)
	p.Set(ctx, "b", []byte("2"), 0)

	// Touch "a" so "b" becomes the eviction candidate.
	current = current.Add(time.Second)
	if _, err := p.Get(ctx, "a"); err != nil {
		t.Fatalf("Get a failed: %v", err)
	}

	current = current.Add(time.Second)
	p.Set(ctx, "c", []byte("3"), 0)

	if _, err := p.Get(ctx, "b"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected b evicted, got %v", err)
	}
	if _, err := p.Get(ctx, "a"); err != nil {
		t.Fatalf("a should survive eviction: %v", err)
	}
	if p.Len() != 2 {
		t.Fatalf("len = %d, want 2", p.Len())
	}
}

func TestNoopProvider(t *testing.T) {
	var p Provider = NoopProvider{}
	ctx := context.Background()

	if err := p.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := p.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("noop Get must miss, got %v", err)
	}
}
