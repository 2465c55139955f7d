package middleware

import (
	"testing"
)

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(5)

	for i := 0; i < 5; i++ {
		if !rl.Allow("guest") {
			t.Fatalf("request %d inside the burst must pass", i+1)
		}
	}
	if rl.Allow("guest") {
		t.Error("request past the burst must be blocked")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1)

	if !rl.Allow("a") {
		t.Fatal("first request for key a must pass")
	}
	if rl.Allow("a") {
		t.Error("second request for key a must be blocked")
	}
	if !rl.Allow("b") {
		t.Error("key b has its own bucket and must pass")
	}
}
