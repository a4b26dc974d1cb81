package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/citegrab/citegrab/internal/config"
	"github.com/citegrab/citegrab/internal/engine"
	"github.com/citegrab/citegrab/internal/fetcher"
	"github.com/citegrab/citegrab/internal/observability"
	"github.com/citegrab/citegrab/internal/pipeline"
	"github.com/citegrab/citegrab/internal/scholar"
	"github.com/citegrab/citegrab/internal/storage"
	"github.com/citegrab/citegrab/internal/types"
)

// searchCmd creates the "search" subcommand.
func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search and extract bibliographic records",
		Long:  "Run a search against the configured site, extract every result's bibliographic record, and export them.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "./output", "output directory")
	cmd.Flags().StringVarP(&outputType, "format", "f", "jsonl", "output format: json, jsonl, csv, mongodb")
	cmd.Flags().StringVar(&siteURL, "site", "", "site base URL (default scholar.google.com)")
	cmd.Flags().StringVar(&layoutName, "layout", "", "result markup layout: auto, legacy, rich")
	cmd.Flags().IntVarP(&maxPages, "pages", "p", 1, "number of result pages to fetch")
	cmd.Flags().IntVarP(&perPage, "per-page", "n", 10, "results per page")
	cmd.Flags().StringVarP(&author, "author", "a", "", "restrict results to an author")
	cmd.Flags().IntVar(&yearFrom, "year-from", 0, "lowest publication year to keep")
	cmd.Flags().IntVar(&yearTo, "year-to", 0, "highest publication year to keep")
	cmd.Flags().StringVar(&lang, "lang", "", "interface language code (hl)")
	cmd.Flags().StringVar(&fetchMode, "fetcher", "", "fetcher type: http, browser")
	cmd.Flags().StringVar(&delay, "delay", "", "politeness delay between page fetches")
	cmd.Flags().IntVar(&minCites, "min-citations", 0, "drop articles below this citation count")

	return cmd
}

// runSearch executes the search command.
func runSearch(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	query := scholar.Query{
		Text:           strings.Join(args, " "),
		Author:         author,
		YearFrom:       yearFrom,
		YearTo:         yearTo,
		ResultsPerPage: cfg.Search.ResultsPerPage,
		Lang:           cfg.Search.Lang,
	}

	logger.Info("starting search",
		"query", query.Text,
		"site", cfg.Site.BaseURL,
		"pages", cfg.Search.MaxPages,
		"fetcher", cfg.Fetcher.Type,
	)

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	pipe := pipeline.New(logger)
	pipe.Use(&pipeline.TrimMiddleware{})
	pipe.Use(pipeline.NewTitleSanitizeMiddleware())
	if yearFrom > 0 || yearTo > 0 {
		pipe.Use(&pipeline.YearRangeMiddleware{From: yearFrom, To: yearTo})
	}
	if minCites > 0 {
		pipe.Use(&pipeline.MinCitationsMiddleware{Min: minCites})
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		cancel()
	}()

	start := time.Now()
	runner := engine.New(cfg, f, pipe, store, metrics, logger)
	result, runErr := runner.Run(ctx, query)

	if err := store.Close(); err != nil {
		logger.Error("close storage", "error", err)
	}

	elapsed := time.Since(start)
	snap := metrics.Snapshot()

	logger.Info("search complete",
		"elapsed", elapsed,
		"pages", result.PagesFetched,
		"articles", result.ArticlesStored,
		"reported_total", result.NumResults,
	)

	fmt.Printf("\nSearch complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("   Pages:     %d fetched, %d retries\n", result.PagesFetched, snap["fetch_retries"])
	fmt.Printf("   Articles:  %d stored, %d dropped\n", result.ArticlesStored, snap["articles_dropped"])
	if result.NumResults > 0 {
		fmt.Printf("   Reported:  %d total results on the site\n", result.NumResults)
	}
	fmt.Printf("   Output:    %s (%s)\n", cfg.Storage.OutputPath, cfg.Storage.Type)

	if runErr != nil {
		if errors.Is(runErr, types.ErrBotWall) {
			fmt.Println("\nThe site served a bot challenge. Try again with --fetcher browser.")
		}
		return runErr
	}
	return nil
}
