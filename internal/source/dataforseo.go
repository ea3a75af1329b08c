// Package source implements the suggestion backends the collector
// fans out across: the DataForSEO v3 API, SerpAPI, and direct HTML
// scraping of Google and Yahoo Japan result pages.
package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/FranksOps/magpie/internal/extract"
	"github.com/FranksOps/magpie/internal/suggest"
	"github.com/FranksOps/magpie/pkg/httpclient"
)

const (
	dataforseoDefaultBase = "https://api.dataforseo.com/v3"

	epAutocomplete    = "/serp/google/autocomplete/live/advanced"
	epGoogleOrganic   = "/serp/google/organic/live/advanced"
	epYahooOrganic    = "/serp/yahoo/live/regular"
	epRelatedKeywords = "/dataforseo_labs/google/related_keywords/live"
	epUserData        = "/appendix/user_data"
)

// DataForSEOConfig configures the DataForSEO source.
type DataForSEOConfig struct {
	BaseURL      string
	Login        string
	Password     string
	LanguageCode string
	LocationCode int
	// Cursors are the autocomplete cursor_pointer values queried per
	// keyword; each returns a different suggestion slice.
	Cursors []int
	// IncludeYahoo adds a Yahoo SERP task for the seed keyword.
	IncludeYahoo bool
	Timeout      time.Duration
}

// DataForSEO fetches suggestions from the DataForSEO v3 live
// endpoints: Google autocomplete (with cursor variation), Google
// organic SERP (related searches + PAA), optionally Yahoo SERP, and
// the Labs related-keywords endpoint as a backfill.
type DataForSEO struct {
	cfg    DataForSEOConfig
	auth   string
	client *httpclient.Client
	logger *slog.Logger
}

var _ suggest.Source = (*DataForSEO)(nil)
var _ suggest.Backfiller = (*DataForSEO)(nil)

// NewDataForSEO creates the source. Login and password are required.
func NewDataForSEO(cfg DataForSEOConfig, logger *slog.Logger) (*DataForSEO, error) {
	if cfg.Login == "" || cfg.Password == "" {
		return nil, fmt.Errorf("source: dataforseo login/password missing")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = dataforseoDefaultBase
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "ja"
	}
	if cfg.LocationCode == 0 {
		cfg.LocationCode = 2392 // Japan
	}
	if len(cfg.Cursors) == 0 {
		cfg.Cursors = []int{0, 1, 2}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("source: dataforseo client: %w", err)
	}

	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.Login+":"+cfg.Password))

	return &DataForSEO{
		cfg:    cfg,
		auth:   auth,
		client: client,
		logger: logger.With("source", "dataforseo"),
	}, nil
}

func (d *DataForSEO) Name() string { return "dataforseo" }

// Tasks enumerates fetches for a keyword. Every depth gets autocomplete
// tasks across the configured cursors; the full SERP (related searches
// and PAA) is only pulled for the seed, where it pays off most.
func (d *DataForSEO) Tasks(kw string, depth int) []suggest.Task {
	var tasks []suggest.Task
	for _, c := range d.cfg.Cursors {
		tasks = append(tasks, suggest.Task{
			Keyword: kw,
			Backend: suggest.BackendGoogleAutocomplete,
			Cursor:  c,
			Depth:   depth,
		})
	}
	if depth == 0 {
		tasks = append(tasks, suggest.Task{
			Keyword: kw,
			Backend: suggest.BackendGoogleOrganic,
			Depth:   depth,
		})
		if d.cfg.IncludeYahoo {
			tasks = append(tasks, suggest.Task{
				Keyword: kw,
				Backend: suggest.BackendYahooOrganic,
				Depth:   depth,
			})
		}
	}
	return tasks
}

// Fetch executes one task against the matching live endpoint.
func (d *DataForSEO) Fetch(ctx context.Context, task suggest.Task) (suggest.Result, error) {
	result := suggest.Result{Task: task, Source: d.Name()}

	var endpoint string
	var payload map[string]any
	var kinds []extract.ItemKind

	base := map[string]any{
		"language_code": d.cfg.LanguageCode,
		"location_code": d.cfg.LocationCode,
		"keyword":       task.Keyword,
	}

	switch task.Backend {
	case suggest.BackendGoogleAutocomplete:
		endpoint = epAutocomplete
		payload = base
		payload["client"] = "chrome"
		payload["cursor_pointer"] = task.Cursor
		kinds = []extract.ItemKind{extract.KindAutocomplete}
	case suggest.BackendGoogleOrganic:
		endpoint = epGoogleOrganic
		payload = base
		payload["device"] = "desktop"
		kinds = []extract.ItemKind{extract.KindRelatedSearch, extract.KindPeopleAlsoAsk}
	case suggest.BackendYahooOrganic:
		endpoint = epYahooOrganic
		payload = base
		kinds = []extract.ItemKind{extract.KindRelatedSearch, extract.KindPeopleAlsoAsk}
	default:
		return result, &suggest.FetchError{
			Backend: task.Backend,
			Keyword: task.Keyword,
			Err:     fmt.Errorf("unsupported backend for dataforseo"),
		}
	}

	body, err := d.post(ctx, endpoint, []map[string]any{payload})
	if err != nil {
		return result, &suggest.FetchError{Backend: task.Backend, Keyword: task.Keyword, Err: err}
	}

	result.Suggestions = extract.Texts(extract.DataForSEOItems(body), kinds...)
	d.logger.Debug("fetched", "backend", string(task.Backend), "keyword", task.Keyword,
		"cursor", task.Cursor, "suggestions", len(result.Suggestions))
	return result, nil
}

// Backfill pulls related keywords from the Labs endpoint. Used when
// the fan-out rounds come up thin for a seed.
func (d *DataForSEO) Backfill(ctx context.Context, seed string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 150
	}
	payload := []map[string]any{{
		"keyword":              seed,
		"language_code":        d.cfg.LanguageCode,
		"location_code":        d.cfg.LocationCode,
		"depth":                2,
		"limit":                limit,
		"include_seed_keyword": false,
	}}

	body, err := d.post(ctx, epRelatedKeywords, payload)
	if err != nil {
		return nil, &suggest.FetchError{
			Backend: suggest.BackendDataForSEOLabs,
			Keyword: seed,
			Err:     err,
		}
	}
	return extract.Texts(extract.DataForSEOItems(body), extract.KindKeywordData), nil
}

// CheckAccount verifies credentials against the user data endpoint.
// DataForSEO reports auth failures in the body, not the HTTP status.
func (d *DataForSEO) CheckAccount(ctx context.Context) error {
	resp, err := d.client.Get(ctx, d.cfg.BaseURL+epUserData, d.header())
	if err != nil {
		return fmt.Errorf("source: account check: %w", err)
	}
	defer resp.Body.Close()

	var status struct {
		StatusCode    int    `json:"status_code"`
		StatusMessage string `json:"status_message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("source: account check: decode: %w", err)
	}
	if status.StatusCode != 20000 {
		return fmt.Errorf("source: account check failed: %d %s", status.StatusCode, status.StatusMessage)
	}
	return nil
}

func (d *DataForSEO) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	resp, err := d.client.PostJSON(ctx, d.cfg.BaseURL+endpoint, d.header(), payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logger.Warn("unexpected status", "status", resp.StatusCode, "endpoint", endpoint)
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (d *DataForSEO) header() http.Header {
	return http.Header{"Authorization": []string{d.auth}}
}
