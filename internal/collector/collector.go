// Package collector drives multi-round keyword expansion: a seed term
// is fanned out across the configured suggestion sources, newly
// discovered terms feed the next round, and the run stops at the
// depth or total caps.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/FranksOps/magpie/internal/keyword"
	"github.com/FranksOps/magpie/internal/metrics"
	"github.com/FranksOps/magpie/internal/storage"
	"github.com/FranksOps/magpie/internal/suggest"
	"github.com/FranksOps/magpie/pkg/ratelimit"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config provides parameters for the fan-out loop.
type Config struct {
	// Method labels the run in output artifacts.
	Method string
	// MaxDepth bounds the number of fan-out rounds.
	MaxDepth int
	// MaxTotal caps the final keyword count; the accumulated set is
	// truncated to this in insertion order.
	MaxTotal int
	// BatchSize is how many frontier terms one round processes.
	BatchSize int
	// FanoutLimit caps how many newly discovered terms a round
	// enqueues for the next one.
	FanoutLimit int
	// Concurrency bounds simultaneous in-flight fetches within a round.
	Concurrency int
	// BackfillBelow triggers the Labs backfill when a finished run has
	// fewer terms than this. Zero disables backfill.
	BackfillBelow int
	// RequestsPerSecond paces fetches across the whole run (0 = no
	// pacing). Jitter randomizes the pacing (0.0 to 1.0).
	RequestsPerSecond float64
	Jitter            float64
}

// Collector owns the fan-out state machine. The accumulated set and
// frontier belong exclusively to Run's goroutine; fetches run
// concurrently but merging happens only between rounds.
type Collector struct {
	cfg     Config
	sources []suggest.Source
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

type fetchJob struct {
	source suggest.Source
	task   suggest.Task
}

// New creates a Collector over the given sources.
func New(cfg Config, sources []suggest.Source, logger *slog.Logger) *Collector {
	if cfg.Method == "" {
		cfg.Method = "recursive"
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 3
	}
	if cfg.MaxTotal <= 0 {
		cfg.MaxTotal = 500
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.FanoutLimit <= 0 {
		cfg.FanoutLimit = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Collector{
		cfg:     cfg,
		sources: sources,
		limiter: ratelimit.New(cfg.RequestsPerSecond, cfg.Jitter),
		logger:  logger,
	}
}

// Run expands the seed until the frontier drains or a cap is hit, and
// returns the truncated result. Fetch failures are logged and counted
// but never abort the run; only context cancellation does, and even
// then the partial record is returned alongside the error.
func (c *Collector) Run(ctx context.Context, seed string) (*storage.RunRecord, error) {
	start := time.Now()

	acc := keyword.NewSet()
	processed := make(map[string]struct{})
	frontier := []string{seed}

	var terms []storage.Term
	fetchErrors := 0
	depth := 0

	var runErr error
	for len(frontier) > 0 && depth < c.cfg.MaxDepth && acc.Len() < c.cfg.MaxTotal {
		n := min(c.cfg.BatchSize, len(frontier))
		batch := frontier[:n]
		frontier = frontier[n:]

		var jobs []fetchJob
		for _, kw := range batch {
			if _, done := processed[kw]; done {
				continue
			}
			processed[kw] = struct{}{}
			for _, src := range c.sources {
				for _, task := range src.Tasks(kw, depth) {
					jobs = append(jobs, fetchJob{source: src, task: task})
				}
			}
		}

		c.logger.Info("round started",
			"depth", depth+1, "batch", len(batch), "fetches", len(jobs), "accumulated", acc.Len())

		results, errCount, err := c.fetchAll(ctx, jobs)
		fetchErrors += errCount
		if err != nil {
			runErr = err
		}

		// Barrier passed: all of the round's fetches are done, so the
		// coordinator merges alone.
		var discovered []string
		for _, res := range results {
			for _, term := range acc.Merge(res.Suggestions) {
				terms = append(terms, storage.Term{Text: term, Source: res.Source, Depth: depth})
				discovered = append(discovered, term)
			}
		}

		enqueued := 0
		for _, term := range discovered {
			if enqueued >= c.cfg.FanoutLimit {
				break
			}
			if _, done := processed[term]; done {
				continue
			}
			frontier = append(frontier, term)
			enqueued++
		}

		depth++
		c.logger.Info("round finished",
			"depth", depth, "new", len(discovered), "accumulated", acc.Len(), "frontier", len(frontier))

		if runErr != nil {
			break
		}
	}

	if runErr == nil && c.cfg.BackfillBelow > 0 && acc.Len() < c.cfg.BackfillBelow {
		terms = c.backfill(ctx, seed, acc, terms, depth)
	}

	if len(terms) > c.cfg.MaxTotal {
		terms = terms[:c.cfg.MaxTotal]
	}

	counts := make(map[string]int)
	for _, t := range terms {
		counts[t.Source]++
	}

	run := &storage.RunRecord{
		ID:           uuid.New().String(),
		Seed:         seed,
		Method:       c.cfg.Method,
		DepthReached: depth,
		TotalUnique:  len(terms),
		FetchErrors:  fetchErrors,
		Terms:        terms,
		SourceCounts: counts,
		StartedAt:    start.UTC(),
		Duration:     time.Since(start),
	}
	return run, runErr
}

// fetchAll executes one round's fetches with bounded concurrency and
// returns the successful results in completion order. The int is the
// number of failed fetches; a non-nil error means the context died.
func (c *Collector) fetchAll(ctx context.Context, jobs []fetchJob) ([]suggest.Result, int, error) {
	var (
		mu       sync.Mutex
		results  []suggest.Result
		errCount int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := c.limiter.Wait(gCtx); err != nil {
				return err
			}

			fetchStart := time.Now()
			res, err := job.source.Fetch(gCtx, job.task)
			metrics.RecordFetch(job.source.Name(), err, time.Since(fetchStart), len(res.Suggestions))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// A failed fetch yields zero suggestions; the round
				// carries on.
				c.logger.Warn("fetch failed",
					"source", job.source.Name(), "keyword", job.task.Keyword, "err", err)
				errCount++
				return nil
			}
			results = append(results, res)
			return nil
		})
	}

	err := g.Wait()
	return results, errCount, err
}

func (c *Collector) backfill(ctx context.Context, seed string, acc *keyword.Set, terms []storage.Term, depth int) []storage.Term {
	for _, src := range c.sources {
		bf, ok := src.(suggest.Backfiller)
		if !ok {
			continue
		}

		extra, err := bf.Backfill(ctx, seed, c.cfg.MaxTotal-acc.Len())
		if err != nil {
			c.logger.Warn("backfill failed", "source", src.Name(), "err", err)
			continue
		}

		added := acc.Merge(extra)
		for _, term := range added {
			terms = append(terms, storage.Term{Text: term, Source: src.Name(), Depth: depth})
		}
		c.logger.Info("backfill merged", "source", src.Name(), "new", len(added))
	}
	return terms
}
