// Command magpie collects keyword suggestions for a seed term by
// fanning out across SERP data providers and scraped result pages.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	// Credentials usually live in a .env next to the binary; a missing
	// file is fine.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "magpie",
		Short: "Keyword suggestion collector for SEO research",
		Long: `Magpie expands a seed keyword into a list of related search terms by
querying the DataForSEO and SerpAPI endpoints and, optionally, scraping
related searches straight off Google and Yahoo result pages. Newly
discovered terms are fed back into further rounds until the configured
depth or total is reached.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to magpie.yaml (default: search ./ and ~/.magpie)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(collectCmd())
	root.AddCommand(reportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setupLogger(format string) *slog.Logger {
	var level slog.Level
	switch flagLogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
