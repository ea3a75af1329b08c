// Package postgres stores collection run history in PostgreSQL, for
// shared access when several operators run collections against the
// same keyword inventory.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/magpie/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS collection_runs (
	id TEXT PRIMARY KEY,
	seed TEXT NOT NULL,
	method TEXT NOT NULL,
	depth_reached INTEGER NOT NULL,
	total_unique INTEGER NOT NULL,
	fetch_errors INTEGER NOT NULL,
	terms JSONB NOT NULL,
	source_counts JSONB NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
);
`

// New creates a Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, run *storage.RunRecord) error {
	termsJSON, err := json.Marshal(run.Terms)
	if err != nil {
		return fmt.Errorf("postgres: marshal terms: %w", err)
	}
	countsJSON, err := json.Marshal(run.SourceCounts)
	if err != nil {
		return fmt.Errorf("postgres: marshal counts: %w", err)
	}

	query := `
	INSERT INTO collection_runs (
		id, seed, method, depth_reached, total_unique, fetch_errors, terms, source_counts, started_at, duration_ms
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = b.pool.Exec(ctx, query,
		run.ID,
		run.Seed,
		run.Method,
		run.DepthReached,
		run.TotalUnique,
		run.FetchErrors,
		termsJSON,
		countsJSON,
		run.StartedAt,
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert: %w", err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	query := `SELECT id, seed, method, depth_reached, total_unique, fetch_errors, terms, source_counts, started_at, duration_ms FROM collection_runs WHERE 1=1`
	args := []any{}
	param := 1

	if filter.Seed != "" {
		query += fmt.Sprintf(` AND seed = $%d`, param)
		args = append(args, filter.Seed)
		param++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND started_at >= $%d`, param)
		args = append(args, *filter.Since)
		param++
	}

	query += ` ORDER BY started_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, param)
		args = append(args, filter.Limit)
		param++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, param)
		args = append(args, filter.Offset)
		param++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer rows.Close()

	var results []*storage.RunRecord
	for rows.Next() {
		var r storage.RunRecord
		var termsJSON, countsJSON []byte
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.Seed, &r.Method, &r.DepthReached, &r.TotalUnique,
			&r.FetchErrors, &termsJSON, &countsJSON, &r.StartedAt, &durationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(termsJSON, &r.Terms); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal terms: %w", err)
		}
		if err := json.Unmarshal(countsJSON, &r.SourceCounts); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal counts: %w", err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
	}
	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
