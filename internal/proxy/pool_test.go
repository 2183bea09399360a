package proxy

import (
	"testing"
	"time"
)

func TestPool_Rotation(t *testing.T) {
	pool := NewPool([]string{"p1:8080", "http://p2:8080", "socks5://p3:1080"}, time.Minute)

	want := []string{"http://p1:8080", "http://p2:8080", "socks5://p3:1080", "http://p1:8080"}
	for i, w := range want {
		if p := pool.GetNext(); p != w {
			t.Errorf("Call %d: expected %s, got %s", i, w, p)
		}
	}
}

func TestPool_SkipsFailedUntilCooldown(t *testing.T) {
	now := time.Now()
	pool := NewPool([]string{"p1:1", "p2:1", "p3:1"}, time.Minute)
	pool.now = func() time.Time { return now }

	pool.GetNext() // p1
	pool.MarkFailed("http://p2:1")

	if p := pool.GetNext(); p != "http://p3:1" {
		t.Errorf("Expected p3 (skipping p2), got %s", p)
	}
	if p := pool.GetNext(); p != "http://p1:1" {
		t.Errorf("Expected p1, got %s", p)
	}
	if got := pool.Healthy(); got != 2 {
		t.Errorf("Expected 2 healthy proxies, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	if p := pool.GetNext(); p != "http://p2:1" {
		t.Errorf("Expected p2 after cooldown, got %s", p)
	}
}

func TestPool_MarkHealthy(t *testing.T) {
	pool := NewPool([]string{"p1:1", "p2:1"}, time.Hour)
	pool.MarkFailed("http://p1:1")
	pool.MarkHealthy("http://p1:1")

	if p := pool.GetNext(); p != "http://p1:1" {
		t.Errorf("Expected p1 after MarkHealthy, got %s", p)
	}
}

func TestPool_AllFailedStillRotates(t *testing.T) {
	pool := NewPool([]string{"p1:1", "p2:1"}, time.Hour)
	pool.MarkFailed("http://p1:1")
	pool.MarkFailed("http://p2:1")

	if p := pool.GetNext(); p == "" {
		t.Error("Expected a proxy even when all are cooling down")
	}
	if got := pool.Healthy(); got != 0 {
		t.Errorf("Expected no healthy proxies, got %d", got)
	}
}

func TestPool_DropsMalformed(t *testing.T) {
	pool := NewPool([]string{"", "  ", "ftp://p1:21", "p2:3128"}, 0)

	if pool.Len() != 1 {
		t.Fatalf("Expected one usable proxy, got %d", pool.Len())
	}
	if p := pool.GetNext(); p != "http://p2:3128" {
		t.Errorf("Unexpected proxy %s", p)
	}
	if p := NewPool(nil, 0).GetNext(); p != "" {
		t.Errorf("Expected empty pool to return \"\", got %s", p)
	}
}
