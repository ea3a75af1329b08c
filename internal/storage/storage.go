package storage

import (
	"context"
	"time"
)

// Term is one collected keyword with provenance.
type Term struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Depth  int    `json:"depth"`
}

// RunRecord is the persisted outcome of one collection run.
type RunRecord struct {
	ID           string         `json:"id"`
	Seed         string         `json:"seed"`
	Method       string         `json:"method"`
	DepthReached int            `json:"depth_reached"`
	TotalUnique  int            `json:"total_unique"`
	FetchErrors  int            `json:"fetch_errors"`
	Terms        []Term         `json:"terms"`
	SourceCounts map[string]int `json:"source_counts"`
	StartedAt    time.Time      `json:"started_at"`
	Duration     time.Duration  `json:"duration"`
}

// Keywords returns the flat keyword list in collection order.
func (r *RunRecord) Keywords() []string {
	out := make([]string, len(r.Terms))
	for i, t := range r.Terms {
		out[i] = t.Text
	}
	return out
}

// Filter selects run records on query.
type Filter struct {
	Seed   string
	Since  *time.Time
	Limit  int
	Offset int
}

// Backend persists and queries collection runs.
type Backend interface {
	Save(ctx context.Context, run *RunRecord) error
	Query(ctx context.Context, filter Filter) ([]*RunRecord, error)
	Close() error
}
