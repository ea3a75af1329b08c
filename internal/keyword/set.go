package keyword

// Set is an insertion-ordered set of suggestion strings. It is the
// accumulator for a collection run: terms are only ever added, never
// removed, and iteration yields terms in first-seen order.
//
// Set is not safe for concurrent use. The fan-out controller owns its
// Set exclusively and merges only between fetch rounds.
type Set struct {
	index map[string]struct{}
	order []string
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{index: make(map[string]struct{})}
}

// Add inserts term into the set. It reports whether the term was new.
// Empty strings are ignored.
func (s *Set) Add(term string) bool {
	if term == "" {
		return false
	}
	if _, ok := s.index[term]; ok {
		return false
	}
	s.index[term] = struct{}{}
	s.order = append(s.order, term)
	return true
}

// Merge folds terms into the set, preserving first-seen order, and
// returns the terms that were genuinely new. Merging the same sequence
// twice is idempotent: the second call returns an empty slice.
func (s *Set) Merge(terms []string) []string {
	var added []string
	for _, t := range terms {
		if s.Add(t) {
			added = append(added, t)
		}
	}
	return added
}

// Contains reports whether term is in the set.
func (s *Set) Contains(term string) bool {
	_, ok := s.index[term]
	return ok
}

// Len returns the number of unique terms.
func (s *Set) Len() int {
	return len(s.order)
}

// Terms returns all terms in insertion order. The returned slice is a
// copy and may be modified by the caller.
func (s *Set) Terms() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// First returns up to n terms in insertion order. If n is negative or
// exceeds the set size, all terms are returned.
func (s *Set) First(n int) []string {
	if n < 0 || n > len(s.order) {
		n = len(s.order)
	}
	out := make([]string, n)
	copy(out, s.order[:n])
	return out
}
