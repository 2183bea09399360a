package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestHostLimiter_SpacesActionsPerHost(t *testing.T) {
	l := NewHostLimiter(time.Hour)

	if !l.Allow("https://www.coupang.com/a") {
		t.Fatal("Expected first action to be allowed")
	}
	if l.Allow("https://WWW.coupang.com/b") {
		t.Error("Expected second action on the same host to wait")
	}
	if !l.Allow("https://shop.example/") {
		t.Error("Expected another host to be independent")
	}
}

func TestHostLimiter_WaitHonoursContext(t *testing.T) {
	l := NewHostLimiter(time.Hour)
	ctx := context.Background()

	if err := l.Wait(ctx, "https://www.coupang.com"); err != nil {
		t.Fatalf("First wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "https://www.coupang.com"); err == nil {
		t.Error("Expected wait to fail once the context expires")
	}
}

func TestHostLimiter_MinimumDelay(t *testing.T) {
	l := NewHostLimiter(30 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx, "https://www.coupang.com"); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Expected at least two delays, took %v", elapsed)
	}
}

func TestHostLimiter_Disabled(t *testing.T) {
	l := NewHostLimiter(0)
	for i := 0; i < 10; i++ {
		if !l.Allow("https://www.coupang.com") {
			t.Fatal("Expected no limiting with zero delay")
		}
	}
	if err := l.Wait(context.Background(), "::bad"); err != nil {
		t.Errorf("Expected invalid address to pass, got %v", err)
	}
}

func TestHostLimiter_SetDelay(t *testing.T) {
	l := NewHostLimiter(time.Hour)
	l.SetDelay("www.coupang.com", 0)
	for i := 0; i < 3; i++ {
		if !l.Allow("https://www.coupang.com") {
			t.Fatal("Expected per-host override to lift the delay")
		}
	}
}
