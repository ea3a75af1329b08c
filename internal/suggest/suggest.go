package suggest

import (
	"context"
	"fmt"
)

// Backend identifies the kind of suggestion request a task performs.
type Backend string

const (
	BackendGoogleAutocomplete Backend = "google_autocomplete"
	BackendGoogleOrganic      Backend = "google_organic"
	BackendYahooOrganic       Backend = "yahoo_organic"
	BackendDataForSEOLabs     Backend = "dataforseo_labs"
)

// Task is one unit of fan-out work: fetch suggestions for a keyword
// from a single backend. Cursor selects an autocomplete variation slice
// for backends that support pagination; it is zero otherwise.
type Task struct {
	Keyword string
	Backend Backend
	Cursor  int
	Depth   int
}

// Result holds the suggestions extracted from one completed task.
// Results are ephemeral: they exist only to be merged into the run's
// accumulated set.
type Result struct {
	Task        Task
	Source      string
	Suggestions []string
}

// Source is a suggestion provider. Tasks enumerates the fetches the
// provider wants to perform for a keyword at a given fan-out depth;
// Fetch executes exactly one of them.
//
// Fetch must not retain the context. A failed fetch returns a
// *FetchError; callers treat that as zero suggestions and continue.
type Source interface {
	Name() string
	Tasks(kw string, depth int) []Task
	Fetch(ctx context.Context, task Task) (Result, error)
}

// Backfiller is an optional Source extension used when a run comes up
// thin: it pulls additional related keywords for the seed in a single
// call, outside the normal fan-out rounds.
type Backfiller interface {
	Backfill(ctx context.Context, seed string, limit int) ([]string, error)
}

// FetchError reports a failed network call against a backend. It wraps
// the underlying transport or status error.
type FetchError struct {
	Backend Backend
	Keyword string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %q: %v", e.Backend, e.Keyword, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
