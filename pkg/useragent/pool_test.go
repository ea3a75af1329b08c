package useragent

import "testing"

func TestPool_DefaultsWhenEmpty(t *testing.T) {
	p := NewPool(nil)
	if p.Size() != len(Defaults) {
		t.Errorf("expected %d defaults, got %d", len(Defaults), p.Size())
	}
	if p.Next() == "" {
		t.Error("expected non-empty agent")
	}
}

func TestPool_RoundRobin(t *testing.T) {
	agents := []string{"A", "B", "C"}
	p := NewPool(agents)

	for i := 0; i < 6; i++ {
		want := agents[i%3]
		if got := p.Next(); got != want {
			t.Errorf("call %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestPool_Random(t *testing.T) {
	p := NewPool([]string{"only"})
	for i := 0; i < 5; i++ {
		if got := p.Random(); got != "only" {
			t.Errorf("expected only, got %s", got)
		}
	}
}

func TestPool_CopiesInput(t *testing.T) {
	agents := []string{"X"}
	p := NewPool(agents)
	agents[0] = "mutated"

	if got := p.Next(); got != "X" {
		t.Errorf("pool should not see external mutation, got %s", got)
	}
}
