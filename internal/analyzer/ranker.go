// Package analyzer scores collected keywords so that reports list the
// most promising expansion candidates first.
package analyzer

import (
	"sort"
	"strings"

	"github.com/FranksOps/magpie/internal/storage"
)

// RankedTerm is one keyword with its computed score components.
type RankedTerm struct {
	Text    string  `json:"text"`
	Source  string  `json:"source"`
	Depth   int     `json:"depth"`
	Overlap float64 `json:"overlap"`
	Score   float64 `json:"score"`
}

// Weights tunes the scoring. Zero value means DefaultWeights.
type Weights struct {
	// Depth penalizes terms discovered in later rounds; they are
	// further removed from the seed's intent.
	Depth float64
	// Overlap rewards shared tokens with the seed.
	Overlap float64
}

// DefaultWeights came out of eyeballing ranked output for a dozen
// Japanese seed keywords; nothing scientific.
var DefaultWeights = Weights{
	Depth:   0.2,
	Overlap: 1.0,
}

// Rank scores every term of a run and returns them ordered best-first.
// Ties break on insertion order, so ranking is deterministic for a
// given run record.
func Rank(run *storage.RunRecord, w Weights) []RankedTerm {
	if w == (Weights{}) {
		w = DefaultWeights
	}

	seedTokens := tokenize(run.Seed)
	ranked := make([]RankedTerm, 0, len(run.Terms))

	for _, term := range run.Terms {
		overlap := tokenOverlap(seedTokens, tokenize(term.Text))
		score := w.Overlap*overlap - w.Depth*float64(term.Depth)
		ranked = append(ranked, RankedTerm{
			Text:    term.Text,
			Source:  term.Source,
			Depth:   term.Depth,
			Overlap: overlap,
			Score:   score,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Top returns the best n ranked terms.
func Top(ranked []RankedTerm, n int) []RankedTerm {
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// tokenize splits on whitespace and full-width spaces. Japanese
// suggestion phrases come back space-delimited from every backend, so
// this is enough without a segmenter.
func tokenize(s string) []string {
	s = strings.ReplaceAll(s, "　", " ")
	fields := strings.Fields(strings.ToLower(s))
	return fields
}

// tokenOverlap is the fraction of candidate tokens also present in the
// seed. A term that merely restates the seed scores 1.0.
func tokenOverlap(seed, candidate []string) float64 {
	if len(candidate) == 0 {
		return 0
	}

	seedSet := make(map[string]struct{}, len(seed))
	for _, tok := range seed {
		seedSet[tok] = struct{}{}
	}

	shared := 0
	for _, tok := range candidate {
		if _, ok := seedSet[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(candidate))
}
