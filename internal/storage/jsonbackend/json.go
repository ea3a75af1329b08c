// Package jsonbackend writes collection runs as the pipeline's output
// artifacts: a JSON file named {method}_{seed}_{count}件.json plus a
// companion .txt with one numbered keyword per line.
package jsonbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/FranksOps/magpie/internal/storage"
)

var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu  sync.Mutex
	dir string
}

// New creates a backend writing artifacts into dir, creating it if
// needed.
func New(dir string) (storage.Backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonbackend: mkdir %s: %w", dir, err)
	}
	return &jsonBackend{dir: dir}, nil
}

func (b *jsonBackend) Save(ctx context.Context, run *storage.RunRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	base := fmt.Sprintf("%s_%s_%d件", safeName(run.Method), safeName(run.Seed), run.TotalUnique)

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonbackend: marshal run: %w", err)
	}
	jsonPath := filepath.Join(b.dir, base+".json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("jsonbackend: write %s: %w", jsonPath, err)
	}

	var sb strings.Builder
	for i, kw := range run.Keywords() {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, kw)
	}
	txtPath := filepath.Join(b.dir, base+".txt")
	if err := os.WriteFile(txtPath, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("jsonbackend: write %s: %w", txtPath, err)
	}

	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(b.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("jsonbackend: glob: %w", err)
	}

	var all []*storage.RunRecord
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("jsonbackend: read %s: %w", p, err)
		}

		var run storage.RunRecord
		if err := json.Unmarshal(data, &run); err != nil {
			// Not every .json in the output dir is necessarily ours.
			continue
		}
		if run.ID == "" {
			continue
		}

		if filter.Seed != "" && run.Seed != filter.Seed {
			continue
		}
		if filter.Since != nil && run.StartedAt.Before(*filter.Since) {
			continue
		}
		all = append(all, &run)
	}

	// Newest first.
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].StartedAt.After(all[i].StartedAt) {
				all[i], all[j] = all[j], all[i]
			}
		}
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

func (b *jsonBackend) Close() error { return nil }

// safeName keeps seed keywords (including Japanese text) usable as
// filename components.
func safeName(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer(
		" ", "_",
		"　", "_",
		"/", "_",
		"\\", "_",
		":", "_",
	)
	return replacer.Replace(s)
}
