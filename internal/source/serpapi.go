package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/FranksOps/magpie/internal/extract"
	"github.com/FranksOps/magpie/internal/suggest"
	"github.com/FranksOps/magpie/pkg/httpclient"
)

const serpapiDefaultBase = "https://serpapi.com/search"

// SerpAPIConfig configures the SerpAPI source.
type SerpAPIConfig struct {
	APIKey  string
	BaseURL string
	// Hl is the interface language code sent as hl (default ja).
	Hl      string
	Timeout time.Duration
}

// SerpAPI pulls Google related searches and PAA questions through the
// SerpAPI JSON endpoint. One task per keyword per depth; autocomplete
// is not offered here, so SerpAPI pairs naturally with a second
// source.
type SerpAPI struct {
	cfg    SerpAPIConfig
	client *httpclient.Client
	logger *slog.Logger
}

var _ suggest.Source = (*SerpAPI)(nil)

// NewSerpAPI creates the source. The API key is required.
func NewSerpAPI(cfg SerpAPIConfig, logger *slog.Logger) (*SerpAPI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("source: serpapi api key missing")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = serpapiDefaultBase
	}
	if cfg.Hl == "" {
		cfg.Hl = "ja"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("source: serpapi client: %w", err)
	}

	return &SerpAPI{
		cfg:    cfg,
		client: client,
		logger: logger.With("source", "serpapi"),
	}, nil
}

func (s *SerpAPI) Name() string { return "serpapi" }

func (s *SerpAPI) Tasks(kw string, depth int) []suggest.Task {
	return []suggest.Task{{
		Keyword: kw,
		Backend: suggest.BackendGoogleOrganic,
		Depth:   depth,
	}}
}

func (s *SerpAPI) Fetch(ctx context.Context, task suggest.Task) (suggest.Result, error) {
	result := suggest.Result{Task: task, Source: s.Name()}

	if task.Backend != suggest.BackendGoogleOrganic {
		return result, &suggest.FetchError{
			Backend: task.Backend,
			Keyword: task.Keyword,
			Err:     fmt.Errorf("unsupported backend for serpapi"),
		}
	}

	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", task.Keyword)
	q.Set("hl", s.cfg.Hl)
	q.Set("api_key", s.cfg.APIKey)

	resp, err := s.client.Get(ctx, s.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return result, &suggest.FetchError{Backend: task.Backend, Keyword: task.Keyword, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("unexpected status", "status", resp.StatusCode, "keyword", task.Keyword)
		return result, &suggest.FetchError{
			Backend: task.Backend,
			Keyword: task.Keyword,
			Err:     fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, &suggest.FetchError{Backend: task.Backend, Keyword: task.Keyword, Err: err}
	}

	result.Suggestions = extract.Texts(extract.SerpAPIItems(body))
	s.logger.Debug("fetched", "keyword", task.Keyword, "suggestions", len(result.Suggestions))
	return result, nil
}
