// Package proxy implements a rotating proxy pool with failure
// cooldowns, used to spread direct search-engine fetches across exit
// IPs.
package proxy

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Config tunes pool behavior.
type Config struct {
	// MaxFailures before a proxy is benched.
	MaxFailures int
	// Cooldown is how long a benched proxy sits out.
	Cooldown time.Duration
}

type entry struct {
	u        *url.URL
	failures int
	benched  time.Time
}

// Pool rotates proxies round-robin, skipping ones that recently failed.
// Safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	cfg     Config
	entries []*entry
	next    int
}

// NewPool creates an empty pool.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{cfg: cfg}
}

// Add registers a proxy URL.
func (p *Pool) Add(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("proxy: parse %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("proxy: %q missing scheme or host", rawURL)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, &entry{u: u})
	return nil
}

// Next returns the next healthy proxy, or nil if the pool is empty or
// every proxy is benched.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.entries)
	for i := 0; i < n; i++ {
		e := p.entries[p.next%n]
		p.next++

		if e.failures >= p.cfg.MaxFailures {
			if time.Since(e.benched) < p.cfg.Cooldown {
				continue
			}
			// Cooldown elapsed; give it another chance.
			e.failures = 0
		}
		return e.u
	}
	return nil
}

// MarkFailure records a failed request through the proxy. Once the
// failure threshold is hit the proxy is benched for the cooldown.
func (p *Pool) MarkFailure(u *url.URL) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		if e.u.String() == u.String() {
			e.failures++
			if e.failures >= p.cfg.MaxFailures {
				e.benched = time.Now()
			}
			return
		}
	}
}

// MarkSuccess resets the failure count for the proxy.
func (p *Pool) MarkSuccess(u *url.URL) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		if e.u.String() == u.String() {
			e.failures = 0
			return
		}
	}
}

// Size returns the number of registered proxies.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
