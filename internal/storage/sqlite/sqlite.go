// Package sqlite stores collection run history in a local SQLite
// database, for repeated batch runs against the same seed list.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/magpie/internal/storage"
	_ "modernc.org/sqlite"
)

var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS collection_runs (
	id TEXT PRIMARY KEY,
	seed TEXT NOT NULL,
	method TEXT NOT NULL,
	depth_reached INTEGER NOT NULL,
	total_unique INTEGER NOT NULL,
	fetch_errors INTEGER NOT NULL,
	terms TEXT NOT NULL,
	source_counts TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL
);
`

// New creates a SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, run *storage.RunRecord) error {
	termsJSON, err := json.Marshal(run.Terms)
	if err != nil {
		return fmt.Errorf("sqlite: marshal terms: %w", err)
	}
	countsJSON, err := json.Marshal(run.SourceCounts)
	if err != nil {
		return fmt.Errorf("sqlite: marshal counts: %w", err)
	}

	query := `
	INSERT INTO collection_runs (
		id, seed, method, depth_reached, total_unique, fetch_errors, terms, source_counts, started_at, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		run.ID,
		run.Seed,
		run.Method,
		run.DepthReached,
		run.TotalUnique,
		run.FetchErrors,
		string(termsJSON),
		string(countsJSON),
		run.StartedAt,
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	query := `SELECT id, seed, method, depth_reached, total_unique, fetch_errors, terms, source_counts, started_at, duration_ms FROM collection_runs WHERE 1=1`
	args := []any{}

	if filter.Seed != "" {
		query += ` AND seed = ?`
		args = append(args, filter.Seed)
	}
	if filter.Since != nil {
		query += ` AND started_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY started_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	var results []*storage.RunRecord
	for rows.Next() {
		var r storage.RunRecord
		var termsJSON, countsJSON string
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.Seed, &r.Method, &r.DepthReached, &r.TotalUnique,
			&r.FetchErrors, &termsJSON, &countsJSON, &r.StartedAt, &durationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(termsJSON), &r.Terms); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal terms: %w", err)
		}
		if err := json.Unmarshal([]byte(countsJSON), &r.SourceCounts); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal counts: %w", err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}
	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
