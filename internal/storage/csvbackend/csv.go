// Package csvbackend stores collected keywords one row per term, for
// spreadsheet import into keyword planners.
package csvbackend

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/magpie/internal/storage"
)

var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

var headers = []string{
	"run_id",
	"seed",
	"method",
	"keyword",
	"source",
	"depth",
	"collected_at",
}

// New creates a CSV-backed storage.Backend, appending to filePath.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csvbackend: open %s: %w", filePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvbackend: stat: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: write headers: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: flush headers: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, run *storage.RunRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("csvbackend: seek: %w", err)
	}

	w := csv.NewWriter(b.file)
	collectedAt := run.StartedAt.Format(time.RFC3339)
	for _, term := range run.Terms {
		record := []string{
			run.ID,
			run.Seed,
			run.Method,
			term.Text,
			term.Source,
			strconv.Itoa(term.Depth),
			collectedAt,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("csvbackend: write row: %w", err)
		}
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("csvbackend: flush: %w", err)
	}
	return nil
}

// Query reconstructs run records by grouping rows on run_id. Term
// order within a run follows file order; source counts and totals are
// rebuilt from the rows, so fields not stored per row (duration, fetch
// errors) come back zero.
func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("csvbackend: seek: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.RunRecord{}, nil
		}
		return nil, fmt.Errorf("csvbackend: read headers: %w", err)
	}

	byID := make(map[string]*storage.RunRecord)
	var order []string

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvbackend: read row: %w", err)
		}
		if len(record) != len(headers) {
			continue // skip malformed rows
		}

		run, ok := byID[record[0]]
		if !ok {
			startedAt, _ := time.Parse(time.RFC3339, record[6])
			run = &storage.RunRecord{
				ID:           record[0],
				Seed:         record[1],
				Method:       record[2],
				SourceCounts: make(map[string]int),
				StartedAt:    startedAt,
			}
			byID[record[0]] = run
			order = append(order, record[0])
		}

		depth, _ := strconv.Atoi(record[5])
		run.Terms = append(run.Terms, storage.Term{
			Text:   record[3],
			Source: record[4],
			Depth:  depth,
		})
		run.SourceCounts[record[4]]++
		run.TotalUnique = len(run.Terms)
		if depth > run.DepthReached {
			run.DepthReached = depth
		}
	}

	var all []*storage.RunRecord
	for _, id := range order {
		run := byID[id]
		if filter.Seed != "" && run.Seed != filter.Seed {
			continue
		}
		if filter.Since != nil && run.StartedAt.Before(*filter.Since) {
			continue
		}
		all = append(all, run)
	}

	// Newest first.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(all) {
			return []*storage.RunRecord{}, nil
		}
		all = all[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}

	return all, nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
