package utils

import "testing"

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 100); got != "short" {
		t.Fatalf("unexpected truncation of short string: %q", got)
	}
	if got := Truncate("abcdefgh", 5); got != "abcde..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := Truncate("anything", 0); got != "" {
		t.Fatalf("expected empty string for max 0, got %q", got)
	}
}

func TestContainsAny(t *testing.T) {
	if !ContainsAny("multiple overlapping concerns", "complex", "multiple") {
		t.Fatal("expected match on 'multiple'")
	}
	if ContainsAny("plain text", "complex", "unclear") {
		t.Fatal("unexpected match")
	}
	if ContainsAny("plain text", "") {
		t.Fatal("empty needle must not match")
	}
}
