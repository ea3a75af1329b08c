package analyzer

import (
	"testing"

	"github.com/FranksOps/magpie/internal/storage"
)

func testRun() *storage.RunRecord {
	return &storage.RunRecord{
		Seed: "エアコン 掃除",
		Terms: []storage.Term{
			{Text: "エアコン 掃除 自分で", Source: "dataforseo", Depth: 0},
			{Text: "カビ 対策", Source: "google_html", Depth: 2},
			{Text: "エアコン 掃除 業者 比較", Source: "dataforseo", Depth: 1},
		},
	}
}

func TestRank_SeedOverlapWins(t *testing.T) {
	ranked := Rank(testRun(), Weights{})

	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked terms, got %d", len(ranked))
	}
	if ranked[0].Text != "エアコン 掃除 自分で" {
		t.Errorf("shallow high-overlap term should rank first, got %q", ranked[0].Text)
	}
	if ranked[2].Text != "カビ 対策" {
		t.Errorf("deep zero-overlap term should rank last, got %q", ranked[2].Text)
	}
}

func TestRank_Deterministic(t *testing.T) {
	a := Rank(testRun(), Weights{})
	b := Rank(testRun(), Weights{})

	for i := range a {
		if a[i].Text != b[i].Text {
			t.Fatalf("ranking not deterministic at %d: %q vs %q", i, a[i].Text, b[i].Text)
		}
	}
}

func TestRank_DepthPenalty(t *testing.T) {
	run := &storage.RunRecord{
		Seed: "テスト",
		Terms: []storage.Term{
			{Text: "テスト 自動化", Source: "dataforseo", Depth: 2},
			{Text: "テスト 手法", Source: "dataforseo", Depth: 0},
		},
	}

	ranked := Rank(run, Weights{})
	if ranked[0].Text != "テスト 手法" {
		t.Errorf("equal overlap should break on depth, got %q first", ranked[0].Text)
	}
}

func TestTop_Clamps(t *testing.T) {
	ranked := Rank(testRun(), Weights{})

	if got := Top(ranked, 2); len(got) != 2 {
		t.Errorf("Top(2) returned %d", len(got))
	}
	if got := Top(ranked, 10); len(got) != 3 {
		t.Errorf("Top(10) should clamp to 3, got %d", len(got))
	}
	if got := Top(ranked, -1); len(got) != 0 {
		t.Errorf("Top(-1) should be empty, got %d", len(got))
	}
}

func TestTokenOverlap(t *testing.T) {
	cases := []struct {
		seed, candidate string
		want            float64
	}{
		{"エアコン 掃除", "エアコン 掃除", 1.0},
		{"エアコン 掃除", "エアコン 掃除 自分で", 2.0 / 3.0},
		{"エアコン 掃除", "カビ 対策", 0},
		{"エアコン　掃除", "エアコン 修理", 0.5}, // full-width space in seed
	}

	for _, c := range cases {
		got := tokenOverlap(tokenize(c.seed), tokenize(c.candidate))
		if got != c.want {
			t.Errorf("overlap(%q, %q) = %v, want %v", c.seed, c.candidate, got, c.want)
		}
	}
}
