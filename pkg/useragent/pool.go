// Package useragent rotates browser User-Agent strings for direct
// search engine fetches, which reject the default Go client UA.
package useragent

import (
	"math/rand"
	"sync/atomic"
)

// Defaults covers current desktop Chrome, Firefox, and Safari builds.
var Defaults = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

// Pool hands out User-Agent strings round-robin or at random. Safe for
// concurrent use.
type Pool struct {
	agents []string
	next   atomic.Uint64
}

// NewPool builds a pool from the given strings, falling back to
// Defaults when empty. The input slice is copied.
func NewPool(agents []string) *Pool {
	if len(agents) == 0 {
		agents = Defaults
	}
	copied := make([]string, len(agents))
	copy(copied, agents)
	return &Pool{agents: copied}
}

// Next returns the next agent in round-robin order.
func (p *Pool) Next() string {
	i := p.next.Add(1) - 1
	return p.agents[i%uint64(len(p.agents))]
}

// Random returns a uniformly random agent.
func (p *Pool) Random() string {
	return p.agents[rand.Intn(len(p.agents))]
}

// Size returns the number of agents in the pool.
func (p *Pool) Size() int { return len(p.agents) }
