// Package pipeline orchestrates a full collection: fan-out, ranking,
// persistence and report output.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/FranksOps/magpie/internal/collector"
	"github.com/FranksOps/magpie/internal/report"
	"github.com/FranksOps/magpie/internal/storage"
)

// Pipeline wires the collector to the configured storage backends and
// the report writer.
type Pipeline struct {
	Collector *collector.Collector
	Backends  []storage.Backend
	Logger    *slog.Logger
	// TopTerms bounds the ranked-term list in the generated summary.
	TopTerms int
}

// Outcome is the result of a completed pipeline run.
type Outcome struct {
	Run     *storage.RunRecord
	Summary report.Summary
}

// Run collects keywords for the seed, persists the run to every
// backend, and writes a text summary to w. Storage failures on one
// backend do not prevent the others from saving.
func (p *Pipeline) Run(ctx context.Context, seed string, w io.Writer) (*Outcome, error) {
	if p.Collector == nil {
		return nil, fmt.Errorf("pipeline: collector is nil")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	run, runErr := p.Collector.Run(ctx, seed)
	if run == nil {
		return nil, fmt.Errorf("pipeline: collect: %w", runErr)
	}
	if runErr != nil {
		// Partial results are still worth keeping.
		logger.Warn("collection ended early", "err", runErr, "collected", run.TotalUnique)
	}

	var saveErrs int
	for _, b := range p.Backends {
		if err := b.Save(ctx, run); err != nil {
			logger.Error("save failed", "err", err)
			saveErrs++
		}
	}
	if len(p.Backends) > 0 && saveErrs == len(p.Backends) {
		return nil, fmt.Errorf("pipeline: all %d storage backends failed", saveErrs)
	}

	summary := report.GenerateSummary(run, p.TopTerms)
	if w != nil {
		if err := report.WriteText(w, summary); err != nil {
			return nil, err
		}
	}

	return &Outcome{Run: run, Summary: summary}, nil
}
