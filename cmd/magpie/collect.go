package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/magpie/internal/collector"
	"github.com/FranksOps/magpie/internal/config"
	"github.com/FranksOps/magpie/internal/extract"
	"github.com/FranksOps/magpie/internal/metrics"
	"github.com/FranksOps/magpie/internal/pipeline"
	"github.com/FranksOps/magpie/internal/source"
	"github.com/FranksOps/magpie/internal/storage"
	"github.com/FranksOps/magpie/internal/storage/csvbackend"
	"github.com/FranksOps/magpie/internal/storage/jsonbackend"
	"github.com/FranksOps/magpie/internal/storage/postgres"
	"github.com/FranksOps/magpie/internal/storage/sqlite"
	"github.com/FranksOps/magpie/internal/suggest"
	"github.com/FranksOps/magpie/pkg/proxy"
)

var (
	collectBackends    string
	collectMaxDepth    int
	collectMaxTotal    int
	collectBatchSize   int
	collectFanout      int
	collectConcurrency int
	collectOutputDir   string
	collectStores      string
	collectTop         int
	collectMetrics     bool
	collectMetricsPort int
	collectProxies     string
)

func collectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect [seed] [target]",
		Short: "Collect keyword suggestions for a seed term",
		Long: `Expand a seed keyword into related search terms.

Backends: dataforseo (autocomplete + organic SERP + Labs backfill),
serpapi (Google related searches), google_html and yahoo_html (scraped
result pages). Results are written as JSON and numbered-text artifacts
and optionally recorded in CSV, SQLite or Postgres run history.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runCollect,
	}

	cmd.Flags().StringVarP(&collectBackends, "backends", "b", "dataforseo", "comma-separated backends: dataforseo,serpapi,google_html,yahoo_html")
	cmd.Flags().IntVarP(&collectMaxDepth, "max-depth", "d", 0, "fan-out rounds (0 = config default)")
	cmd.Flags().IntVarP(&collectMaxTotal, "max-total", "t", 0, "keyword cap (0 = config default)")
	cmd.Flags().IntVar(&collectBatchSize, "batch-size", 0, "frontier terms per round (0 = config default)")
	cmd.Flags().IntVar(&collectFanout, "fanout", 0, "new terms enqueued per round (0 = config default)")
	cmd.Flags().IntVarP(&collectConcurrency, "concurrency", "n", 0, "concurrent fetches (0 = config default)")
	cmd.Flags().StringVarP(&collectOutputDir, "output-dir", "o", "", "artifact directory (default from config)")
	cmd.Flags().StringVar(&collectStores, "store", "", "comma-separated run stores: json,csv,sqlite,postgres (default from config)")
	cmd.Flags().IntVar(&collectTop, "top", 20, "ranked terms to include in the summary")
	cmd.Flags().BoolVar(&collectMetrics, "metrics", false, "expose Prometheus metrics while collecting")
	cmd.Flags().IntVar(&collectMetricsPort, "metrics-port", 0, "metrics port (implies --metrics, 0 = config default)")
	cmd.Flags().StringVar(&collectProxies, "proxies", "", "comma-separated proxy URLs rotated across html backend fetches")

	return cmd
}

func runCollect(cmd *cobra.Command, args []string) error {
	seed := strings.TrimSpace(args[0])
	if seed == "" {
		return fmt.Errorf("seed keyword is empty")
	}
	if len(args) == 2 {
		target, err := strconv.Atoi(args[1])
		if err != nil || target <= 0 {
			return fmt.Errorf("target must be a positive number, got %q", args[1])
		}
		collectMaxTotal = target
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging.Format)

	applyCollectFlags(cfg)

	backends := splitList(collectBackends)
	if err := cfg.Validate(backends); err != nil {
		return err
	}

	sources, err := buildSources(cfg, backends, logger)
	if err != nil {
		return err
	}

	stores, err := buildStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range stores {
			_ = s.Close()
		}
	}()

	if collectMetricsPort > 0 {
		cfg.Metrics.Port = collectMetricsPort
		collectMetrics = true
	}
	if collectMetrics || cfg.Metrics.Enabled {
		srv := metrics.Start(cfg.Metrics.Port)
		defer func() { _ = srv.Stop(context.Background()) }()
		logger.Info("metrics listening", "port", cfg.Metrics.Port)
	}

	method := "recursive"
	for _, b := range backends {
		if strings.HasSuffix(b, "_html") {
			method = "hybrid"
		}
	}

	coll := collector.New(collector.Config{
		Method:            method,
		MaxDepth:          cfg.Collect.MaxDepth,
		MaxTotal:          cfg.Collect.MaxTotal,
		BatchSize:         cfg.Collect.BatchSize,
		FanoutLimit:       cfg.Collect.FanoutLimit,
		Concurrency:       cfg.Collect.Concurrency,
		BackfillBelow:     cfg.Collect.BackfillBelow,
		RequestsPerSecond: cfg.Collect.RequestsPerSecond,
		Jitter:            cfg.Collect.Jitter,
	}, sources, logger)

	pipe := &pipeline.Pipeline{
		Collector: coll,
		Backends:  stores,
		Logger:    logger,
		TopTerms:  collectTop,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	out, err := pipe.Run(ctx, seed, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Printf("\nCollected %d keywords in %s (%d rounds, %d fetch errors)\n",
		out.Run.TotalUnique, time.Since(start).Round(time.Millisecond),
		out.Run.DepthReached, out.Run.FetchErrors)
	return nil
}

func applyCollectFlags(cfg *config.Config) {
	if collectMaxDepth > 0 {
		cfg.Collect.MaxDepth = collectMaxDepth
	}
	if collectMaxTotal > 0 {
		cfg.Collect.MaxTotal = collectMaxTotal
	}
	if collectBatchSize > 0 {
		cfg.Collect.BatchSize = collectBatchSize
	}
	if collectFanout > 0 {
		cfg.Collect.FanoutLimit = collectFanout
	}
	if collectConcurrency > 0 {
		cfg.Collect.Concurrency = collectConcurrency
	}
	if collectOutputDir != "" {
		cfg.Storage.OutputDir = collectOutputDir
	}
	if collectStores != "" {
		cfg.Storage.Stores = splitList(collectStores)
	}
	if collectProxies != "" {
		cfg.Scraping.Proxies = splitList(collectProxies)
	}
}

func buildSources(cfg *config.Config, backends []string, logger *slog.Logger) ([]suggest.Source, error) {
	// One shared pool so google_html and yahoo_html rotate through the
	// same proxies and share failure state.
	var proxyPool *proxy.Pool
	if len(cfg.Scraping.Proxies) > 0 {
		proxyPool = proxy.NewPool(proxy.Config{})
		for _, raw := range cfg.Scraping.Proxies {
			if err := proxyPool.Add(raw); err != nil {
				return nil, err
			}
		}
	}

	var sources []suggest.Source
	for _, name := range backends {
		switch name {
		case "dataforseo":
			src, err := source.NewDataForSEO(source.DataForSEOConfig{
				BaseURL:      cfg.DataForSEO.BaseURL,
				Login:        cfg.DataForSEO.Login,
				Password:     cfg.DataForSEO.Password,
				LanguageCode: cfg.DataForSEO.LanguageCode,
				LocationCode: cfg.DataForSEO.LocationCode,
			}, logger)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		case "serpapi":
			src, err := source.NewSerpAPI(source.SerpAPIConfig{
				APIKey: cfg.SerpAPI.APIKey,
				Hl:     cfg.DataForSEO.LanguageCode,
			}, logger)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		case "google_html":
			src, err := source.NewWebSERP(extract.EngineGoogle, source.WebSERPConfig{ProxyPool: proxyPool}, logger)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		case "yahoo_html":
			src, err := source.NewWebSERP(extract.EngineYahoo, source.WebSERPConfig{ProxyPool: proxyPool}, logger)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		default:
			return nil, fmt.Errorf("unknown backend %q", name)
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no backends selected")
	}
	return sources, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func buildStores(ctx context.Context, cfg *config.Config) ([]storage.Backend, error) {
	var stores []storage.Backend
	for _, name := range cfg.Storage.Stores {
		var (
			b   storage.Backend
			err error
		)
		switch name {
		case "json":
			b, err = jsonbackend.New(cfg.Storage.OutputDir)
		case "csv":
			b, err = csvbackend.New(filepath.Join(cfg.Storage.OutputDir, "runs.csv"))
		case "sqlite":
			b, err = sqlite.New(cfg.Storage.SQLitePath)
		case "postgres":
			b, err = postgres.New(ctx, cfg.Storage.PostgresDSN)
		default:
			err = fmt.Errorf("unknown store %q", name)
		}
		if err != nil {
			for _, s := range stores {
				_ = s.Close()
			}
			return nil, fmt.Errorf("store %s: %w", name, err)
		}
		stores = append(stores, b)
	}
	return stores, nil
}
