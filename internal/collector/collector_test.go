package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/FranksOps/magpie/internal/suggest"
)

// fakeSource replays scripted suggestions keyed by keyword. Keywords
// without a script entry return no suggestions.
type fakeSource struct {
	name    string
	replies map[string][]string

	mu      sync.Mutex
	fetched []string
	inUse   int
	maxUse  int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Tasks(kw string, depth int) []suggest.Task {
	return []suggest.Task{{Keyword: kw, Backend: suggest.BackendGoogleAutocomplete, Depth: depth}}
}

func (f *fakeSource) Fetch(_ context.Context, task suggest.Task) (suggest.Result, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, task.Keyword)
	f.inUse++
	if f.inUse > f.maxUse {
		f.maxUse = f.inUse
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inUse--
		f.mu.Unlock()
	}()

	return suggest.Result{
		Task:        task,
		Source:      f.name,
		Suggestions: f.replies[task.Keyword],
	}, nil
}

type failingSource struct {
	fakeSource
}

func (f *failingSource) Fetch(_ context.Context, task suggest.Task) (suggest.Result, error) {
	return suggest.Result{}, &suggest.FetchError{
		Backend: task.Backend,
		Keyword: task.Keyword,
		Err:     errors.New("boom"),
	}
}

type backfillSource struct {
	fakeSource
	backfilled []string
}

func (b *backfillSource) Backfill(_ context.Context, seed string, limit int) ([]string, error) {
	b.backfilled = append(b.backfilled, seed)
	return []string{seed + " 比較", seed + " おすすめ"}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_DeduplicatesAcrossRounds(t *testing.T) {
	src := &fakeSource{
		name: "fake",
		replies: map[string][]string{
			"テスト":    {"テスト 方法", "テスト 意味", "テスト 方法"},
			"テスト 方法": {"テスト 意味"}, // already known, must not reappear
		},
	}

	c := New(Config{MaxDepth: 3}, []suggest.Source{src}, quietLogger())
	run, err := c.Run(context.Background(), "テスト")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if run.TotalUnique != 2 {
		t.Fatalf("expected 2 unique terms, got %d: %+v", run.TotalUnique, run.Terms)
	}
	if run.Terms[0].Text != "テスト 方法" || run.Terms[1].Text != "テスト 意味" {
		t.Errorf("insertion order lost: %+v", run.Terms)
	}
	if run.Terms[0].Depth != 0 {
		t.Errorf("first-round term should have depth 0, got %d", run.Terms[0].Depth)
	}
	if run.Seed != "テスト" || run.ID == "" {
		t.Errorf("run identity missing: %+v", run)
	}
	if run.SourceCounts["fake"] != 2 {
		t.Errorf("source counts wrong: %v", run.SourceCounts)
	}
}

func TestRun_StopsAtMaxDepth(t *testing.T) {
	// Every keyword yields a fresh term, so only MaxDepth stops the loop.
	src := &fakeSource{
		name: "fake",
		replies: map[string][]string{
			"a":   {"a b"},
			"a b": {"a b c"},
		},
	}

	c := New(Config{MaxDepth: 2}, []suggest.Source{src}, quietLogger())
	run, err := c.Run(context.Background(), "a")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if run.DepthReached != 2 {
		t.Errorf("expected depth 2, got %d", run.DepthReached)
	}
	if run.TotalUnique != 2 {
		t.Errorf("expected terms from 2 rounds only, got %+v", run.Terms)
	}
}

func TestRun_TruncatesToMaxTotal(t *testing.T) {
	src := &fakeSource{
		name: "fake",
		replies: map[string][]string{
			"seed": {"k1", "k2", "k3", "k4", "k5", "k6", "k7"},
		},
	}

	c := New(Config{MaxDepth: 1, MaxTotal: 5}, []suggest.Source{src}, quietLogger())
	run, err := c.Run(context.Background(), "seed")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if run.TotalUnique != 5 || len(run.Terms) != 5 {
		t.Fatalf("expected truncation to 5, got %d", len(run.Terms))
	}
	// Earliest discoveries survive the cut.
	if run.Terms[0].Text != "k1" || run.Terms[4].Text != "k5" {
		t.Errorf("truncation should keep insertion order: %+v", run.Terms)
	}
}

func TestRun_FanoutLimitBoundsFrontier(t *testing.T) {
	src := &fakeSource{
		name: "fake",
		replies: map[string][]string{
			"seed": {"k1", "k2", "k3"},
			"k1":   {"k1 x"},
			"k2":   {"k2 x"},
			"k3":   {"k3 x"},
		},
	}

	c := New(Config{MaxDepth: 2, FanoutLimit: 1, BatchSize: 10}, []suggest.Source{src}, quietLogger())
	run, err := c.Run(context.Background(), "seed")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Round 2 may only process k1; k2/k3 never get fetched.
	if run.TotalUnique != 4 {
		t.Errorf("expected 3 seed terms + 1 fan-out term, got %+v", run.Terms)
	}
	for _, kw := range src.fetched {
		if kw == "k2" || kw == "k3" {
			t.Errorf("keyword %q fetched despite fanout limit", kw)
		}
	}
}

func TestRun_CountsFetchErrorsWithoutAborting(t *testing.T) {
	good := &fakeSource{
		name:    "good",
		replies: map[string][]string{"seed": {"k1"}},
	}
	bad := &failingSource{fakeSource: fakeSource{name: "bad"}}

	c := New(Config{MaxDepth: 1}, []suggest.Source{good, bad}, quietLogger())
	run, err := c.Run(context.Background(), "seed")
	if err != nil {
		t.Fatalf("Run should survive fetch errors: %v", err)
	}

	if run.FetchErrors != 1 {
		t.Errorf("expected 1 fetch error, got %d", run.FetchErrors)
	}
	if run.TotalUnique != 1 {
		t.Errorf("good source results should survive: %+v", run.Terms)
	}
}

func TestRun_ConcurrencyBounded(t *testing.T) {
	replies := map[string][]string{"seed": {}}
	for _, k := range []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8"} {
		replies["seed"] = append(replies["seed"], k)
		replies[k] = nil
	}
	src := &fakeSource{name: "fake", replies: replies}

	c := New(Config{MaxDepth: 2, Concurrency: 2}, []suggest.Source{src}, quietLogger())
	if _, err := c.Run(context.Background(), "seed"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if src.maxUse > 2 {
		t.Errorf("observed %d concurrent fetches, limit is 2", src.maxUse)
	}
}

func TestRun_BackfillWhenThin(t *testing.T) {
	src := &backfillSource{
		fakeSource: fakeSource{
			name:    "dataforseo",
			replies: map[string][]string{"seed": {"seed 価格"}},
		},
	}

	c := New(Config{MaxDepth: 1, BackfillBelow: 50}, []suggest.Source{src}, quietLogger())
	run, err := c.Run(context.Background(), "seed")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(src.backfilled) != 1 || src.backfilled[0] != "seed" {
		t.Fatalf("expected one backfill call for the seed, got %v", src.backfilled)
	}
	if run.TotalUnique != 3 {
		t.Errorf("expected fan-out + backfill terms, got %+v", run.Terms)
	}
}

func TestRun_NoBackfillWhenDisabled(t *testing.T) {
	src := &backfillSource{
		fakeSource: fakeSource{
			name:    "dataforseo",
			replies: map[string][]string{"seed": {"seed 価格"}},
		},
	}

	c := New(Config{MaxDepth: 1}, []suggest.Source{src}, quietLogger())
	if _, err := c.Run(context.Background(), "seed"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(src.backfilled) != 0 {
		t.Errorf("backfill ran despite being disabled")
	}
}

func TestRun_CancelledContextReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{name: "fake", replies: map[string][]string{"seed": {"k1"}}}
	c := New(Config{MaxDepth: 1, RequestsPerSecond: 0.001}, []suggest.Source{src}, quietLogger())

	run, err := c.Run(ctx, "seed")
	if err == nil {
		t.Fatal("expected context error")
	}
	if run == nil {
		t.Fatal("partial run record should still be returned")
	}
}
