package proxy

import (
	"testing"
	"time"
)

func TestPool_Empty(t *testing.T) {
	p := NewPool(Config{})
	if got := p.Next(); got != nil {
		t.Errorf("empty pool should return nil, got %v", got)
	}
}

func TestPool_AddInvalid(t *testing.T) {
	p := NewPool(Config{})
	if err := p.Add("not a url at all://"); err == nil {
		t.Error("expected error for invalid URL")
	}
	if err := p.Add("/relative/path"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestPool_RoundRobin(t *testing.T) {
	p := NewPool(Config{})
	urls := []string{"http://p1:8080", "http://p2:8080"}
	for _, u := range urls {
		if err := p.Add(u); err != nil {
			t.Fatalf("Add(%s): %v", u, err)
		}
	}

	first := p.Next()
	second := p.Next()
	third := p.Next()

	if first.String() == second.String() {
		t.Error("expected rotation between proxies")
	}
	if first.String() != third.String() {
		t.Error("expected rotation to wrap around")
	}
}

func TestPool_BenchAfterFailures(t *testing.T) {
	p := NewPool(Config{MaxFailures: 2, Cooldown: time.Hour})
	_ = p.Add("http://bad:8080")
	_ = p.Add("http://good:8080")

	bad := p.Next()
	p.MarkFailure(bad)
	p.MarkFailure(bad)

	for i := 0; i < 4; i++ {
		got := p.Next()
		if got == nil {
			t.Fatal("expected healthy proxy")
		}
		if got.String() == bad.String() {
			t.Fatalf("benched proxy was returned on iteration %d", i)
		}
	}
}

func TestPool_SuccessResetsFailures(t *testing.T) {
	p := NewPool(Config{MaxFailures: 2, Cooldown: time.Hour})
	_ = p.Add("http://p1:8080")

	u := p.Next()
	p.MarkFailure(u)
	p.MarkSuccess(u)
	p.MarkFailure(u)

	// One failure after a success should not bench.
	if got := p.Next(); got == nil {
		t.Error("proxy should still be available")
	}
}
