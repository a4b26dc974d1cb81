package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/citegrab/citegrab/internal/config"
)

var (
	cfgFile    string
	verbose    bool
	outputPath string
	outputType string
	siteURL    string
	layoutName string
	maxPages   int
	perPage    int
	author     string
	yearFrom   int
	yearTo     int
	lang       string
	fetchMode  string
	delay      string
	minCites   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "citegrab",
		Short: "citegrab — bibliographic record extraction from scholarly search results",
		Long: `citegrab extracts bibliographic records (title, link, year, citation
counts, cluster IDs, version counts) from Google-Scholar-style search
result pages.

Features:
  • Legacy and rich result markup support with automatic detection
  • Citation and version link resolution (Cited by / All N versions)
  • HTTP fetching with User-Agent rotation and brotli support
  • Headless-browser fallback for bot-walled pages
  • JSON, JSONL, CSV and MongoDB export
  • Prometheus metrics endpoint`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("citegrab %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Site:\n")
			fmt.Printf("  Base URL:          %s\n", cfg.Site.BaseURL)
			fmt.Printf("  Layout:            %s\n", cfg.Site.Layout)
			fmt.Printf("\nSearch:\n")
			fmt.Printf("  Results Per Page:  %d\n", cfg.Search.ResultsPerPage)
			fmt.Printf("  Max Pages:         %d\n", cfg.Search.MaxPages)
			fmt.Printf("  Language:          %s\n", cfg.Search.Lang)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Politeness Delay:  %s\n", cfg.Fetcher.PolitenessDelay)
			fmt.Printf("  Max Retries:       %d\n", cfg.Fetcher.MaxRetries)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// setupLogger creates a structured logger.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if siteURL != "" {
		cfg.Site.BaseURL = siteURL
	}
	if layoutName != "" {
		cfg.Site.Layout = strings.ToLower(layoutName)
	}
	if maxPages > 0 {
		cfg.Search.MaxPages = maxPages
	}
	if perPage > 0 {
		cfg.Search.ResultsPerPage = perPage
	}
	if lang != "" {
		cfg.Search.Lang = lang
	}
	if fetchMode != "" {
		cfg.Fetcher.Type = strings.ToLower(fetchMode)
	}
	if delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			cfg.Fetcher.PolitenessDelay = d
		}
	}
	if outputPath != "" {
		cfg.Storage.OutputPath = outputPath
	}
	if outputType != "" {
		cfg.Storage.Type = strings.ToLower(outputType)
	}
}
