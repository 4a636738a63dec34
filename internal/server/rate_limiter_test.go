package server

import (
	"testing"
	"time"
)

// TestTokenBucketBurst verifies the bucket admits exactly its burst size
// before refusing.
func TestTokenBucketBurst(t *testing.T) {
	tb := newTokenBucket(5, time.Hour)

	for i := 0; i < 5; i++ {
		if !tb.allow() {
			t.Fatalf("frame %d refused within the burst", i+1)
		}
	}
	if tb.allow() {
		t.Error("frame beyond the burst should be refused")
	}
}

// TestTokenBucketRefills verifies tokens come back over time.
func TestTokenBucketRefills(t *testing.T) {
	tb := newTokenBucket(10, 100*time.Millisecond)

	for i := 0; i < 10; i++ {
		tb.allow()
	}
	if tb.allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(50 * time.Millisecond)
	if !tb.allow() {
		t.Error("bucket should have refilled at least one token")
	}
}

// TestTokenBucketCapsAtCapacity verifies long idle periods never grow the
// bucket past its burst size.
func TestTokenBucketCapsAtCapacity(t *testing.T) {
	tb := newTokenBucket(3, time.Hour)
	time.Sleep(20 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if !tb.allow() {
			t.Fatalf("frame %d refused after idle refill", i+1)
		}
	}
	if tb.allow() {
		t.Error("bucket exceeded its capacity after idling")
	}
}

// TestTokenBucketSanitizesArguments verifies non-positive parameters fall
// back to a working single-token bucket.
func TestTokenBucketSanitizesArguments(t *testing.T) {
	tb := newTokenBucket(0, 0)
	if !tb.allow() {
		t.Error("sanitized bucket should admit one frame")
	}
}
