package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(16)
	for i := 1; i <= 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}

	if got := tracker.Percentile(0); got != time.Millisecond {
		t.Fatalf("p0 = %v, want 1ms", got)
	}
	if got := tracker.Percentile(100); got != 10*time.Millisecond {
		t.Fatalf("p100 = %v, want 10ms", got)
	}
	if got := tracker.Percentile(50); got < 4*time.Millisecond || got > 7*time.Millisecond {
		t.Fatalf("p50 = %v, out of range", got)
	}
}

func TestLatencyTrackerBoundedWindow(t *testing.T) {
	tracker := NewLatencyTracker(4)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Second)
	}
	if tracker.Count() != 4 {
		t.Fatalf("count = %d, want 4", tracker.Count())
	}
	// Oldest samples were evicted.
	if got := tracker.Percentile(0); got != 6*time.Second {
		t.Fatalf("p0 = %v, want 6s", got)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	tracker := NewLatencyTracker(8)
	if got := tracker.Percentile(99); got != 0 {
		t.Fatalf("expected zero for empty tracker, got %v", got)
	}
	if got := tracker.Average(); got != 0 {
		t.Fatalf("expected zero average for empty tracker, got %v", got)
	}
}
