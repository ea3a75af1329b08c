package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/FranksOps/magpie/internal/config"
	"github.com/FranksOps/magpie/internal/report"
	"github.com/FranksOps/magpie/internal/storage"
	"github.com/FranksOps/magpie/internal/storage/csvbackend"
	"github.com/FranksOps/magpie/internal/storage/jsonbackend"
	"github.com/FranksOps/magpie/internal/storage/postgres"
	"github.com/FranksOps/magpie/internal/storage/sqlite"
)

var (
	reportStore  string
	reportSeed   string
	reportLimit  int
	reportFormat string
	reportOutput string
	reportTop    int
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize stored collection runs",
		RunE:  runReport,
	}

	cmd.Flags().StringVar(&reportStore, "store", "json", "run store to read: json, csv, sqlite, postgres")
	cmd.Flags().StringVar(&reportSeed, "seed", "", "only runs for this seed keyword")
	cmd.Flags().IntVar(&reportLimit, "limit", 5, "number of recent runs to report")
	cmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "output format: text, json, html")
	cmd.Flags().StringVarP(&reportOutput, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().IntVar(&reportTop, "top", 20, "ranked terms per run")

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	setupLogger(cfg.Logging.Format)

	var store storage.Backend
	switch reportStore {
	case "json":
		store, err = jsonbackend.New(cfg.Storage.OutputDir)
	case "csv":
		store, err = csvbackend.New(filepath.Join(cfg.Storage.OutputDir, "runs.csv"))
	case "sqlite":
		store, err = sqlite.New(cfg.Storage.SQLitePath)
	case "postgres":
		store, err = postgres.New(cmd.Context(), cfg.Storage.PostgresDSN)
	default:
		return fmt.Errorf("unknown store %q", reportStore)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Query(cmd.Context(), storage.Filter{
		Seed:  reportSeed,
		Limit: reportLimit,
	})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	var w io.Writer = os.Stdout
	if reportOutput != "" {
		f, err := os.Create(reportOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	for i, run := range runs {
		summary := report.GenerateSummary(run, reportTop)

		var writeErr error
		switch reportFormat {
		case "json":
			writeErr = report.WriteJSON(w, summary)
		case "html":
			writeErr = report.WriteHTML(w, summary)
		case "text":
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeErr = report.WriteText(w, summary)
		default:
			return fmt.Errorf("unknown format %q", reportFormat)
		}
		if writeErr != nil {
			return writeErr
		}
	}
	return nil
}
