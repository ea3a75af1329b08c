package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/magpie/internal/bypass"
	"github.com/FranksOps/magpie/internal/extract"
	"github.com/FranksOps/magpie/internal/fingerprint"
	"github.com/FranksOps/magpie/internal/metrics"
	"github.com/FranksOps/magpie/internal/suggest"
	"github.com/FranksOps/magpie/pkg/httpclient"
	"github.com/FranksOps/magpie/pkg/proxy"
	"github.com/FranksOps/magpie/pkg/useragent"
)

const (
	googleSearchURL = "https://www.google.com/search"
	yahooSearchURL  = "https://search.yahoo.co.jp/search"

	// Result pages are a few hundred KB; anything bigger is not a SERP.
	maxSERPBody = 4 << 20
)

type proxyCtxKey struct{}

// WebSERPConfig configures a direct HTML scraping source.
type WebSERPConfig struct {
	// BaseURL overrides the engine's search URL, for tests.
	BaseURL     string
	Timeout     time.Duration
	Fingerprint fingerprint.Profile
	UAPool      *useragent.Pool
	ProxyPool   *proxy.Pool
}

// WebSERP scrapes related-search and PAA terms straight off a search
// engine's result page. No auth, but UA rotation and a browser TLS
// fingerprint are required to not get challenged immediately, and
// block pages must be detected rather than scraped.
type WebSERP struct {
	engine  extract.Engine
	cfg     WebSERPConfig
	client  *httpclient.Client
	baseURL string
	logger  *slog.Logger
}

var _ suggest.Source = (*WebSERP)(nil)

// NewWebSERP creates a scraping source for one engine.
func NewWebSERP(engine extract.Engine, cfg WebSERPConfig, logger *slog.Logger) (*WebSERP, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch engine {
		case extract.EngineGoogle:
			baseURL = googleSearchURL
		case extract.EngineYahoo:
			baseURL = yahooSearchURL
		default:
			return nil, fmt.Errorf("source: unknown engine %q", engine)
		}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("source: webserp transport: %w", err)
	}

	// Per-request proxy rotation: the proxy URL rides in on the request
	// context so a single shared transport can serve all fetches.
	if cfg.ProxyPool != nil {
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			if u, ok := req.Context().Value(proxyCtxKey{}).(*url.URL); ok {
				return u, nil
			}
			return nil, nil
		}
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		UseCookieJar: true,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("source: webserp client: %w", err)
	}

	return &WebSERP{
		engine:  engine,
		cfg:     cfg,
		client:  client,
		baseURL: baseURL,
		logger:  logger.With("source", string(engine)+"_html"),
	}, nil
}

func (w *WebSERP) Name() string {
	return string(w.engine) + "_html"
}

func (w *WebSERP) Tasks(kw string, depth int) []suggest.Task {
	backend := suggest.BackendGoogleOrganic
	if w.engine == extract.EngineYahoo {
		backend = suggest.BackendYahooOrganic
	}
	return []suggest.Task{{Keyword: kw, Backend: backend, Depth: depth}}
}

func (w *WebSERP) Fetch(ctx context.Context, task suggest.Task) (suggest.Result, error) {
	result := suggest.Result{Task: task, Source: w.Name()}

	var activeProxy *url.URL
	if w.cfg.ProxyPool != nil {
		if activeProxy = w.cfg.ProxyPool.Next(); activeProxy != nil {
			ctx = context.WithValue(ctx, proxyCtxKey{}, activeProxy)
		}
	}

	header := http.Header{}
	header.Set("User-Agent", w.cfg.UAPool.Next())
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	header.Set("Accept-Language", "ja,en-US;q=0.7,en;q=0.3")

	resp, err := w.client.Get(ctx, w.searchURL(task.Keyword), header)
	if err != nil {
		if activeProxy != nil {
			w.cfg.ProxyPool.MarkFailure(activeProxy)
			w.logger.Warn("proxy fetch failed", "proxy", activeProxy.Host, "keyword", task.Keyword, "err", err)
		}
		return result, &suggest.FetchError{Backend: task.Backend, Keyword: task.Keyword, Err: err}
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		w.cfg.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSERPBody))
	if err != nil {
		return result, &suggest.FetchError{Backend: task.Backend, Keyword: task.Keyword, Err: err}
	}

	if blocked, src := bypass.Analyze(resp.StatusCode, resp.Header, body, bypass.DefaultDetectors()); blocked {
		metrics.BlockedTotal.WithLabelValues(src).Inc()
		w.logger.Warn("blocked", "detector", src, "keyword", task.Keyword, "status", resp.StatusCode)
		return result, &suggest.FetchError{
			Backend: task.Backend,
			Keyword: task.Keyword,
			Err:     fmt.Errorf("blocked by %s", src),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return result, &suggest.FetchError{
			Backend: task.Backend,
			Keyword: task.Keyword,
			Err:     fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	result.Suggestions = extract.RelatedTerms(body, w.engine)
	w.logger.Debug("fetched", "keyword", task.Keyword, "suggestions", len(result.Suggestions))
	return result, nil
}

func (w *WebSERP) searchURL(kw string) string {
	q := url.Values{}
	switch w.engine {
	case extract.EngineYahoo:
		q.Set("p", kw)
	default:
		q.Set("q", kw)
		q.Set("hl", "ja")
		q.Set("num", "20")
	}
	return w.baseURL + "?" + q.Encode()
}
