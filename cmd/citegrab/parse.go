package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/citegrab/citegrab/internal/config"
	"github.com/citegrab/citegrab/internal/pipeline"
	"github.com/citegrab/citegrab/internal/scholar"
	"github.com/citegrab/citegrab/internal/storage"
	"github.com/citegrab/citegrab/internal/types"
)

// parseCmd creates the "parse" subcommand for offline HTML.
func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [file...]",
		Short: "Parse saved result pages",
		Long:  "Extract bibliographic records from locally saved result-page HTML files, or from stdin when no files are given.",
		RunE:  runParse,
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output directory (default: print JSON to stdout)")
	cmd.Flags().StringVarP(&outputType, "format", "f", "jsonl", "output format: json, jsonl, csv")
	cmd.Flags().StringVar(&siteURL, "site", "", "site base URL for resolving relative links")
	cmd.Flags().StringVar(&layoutName, "layout", "auto", "result markup layout: auto, legacy, rich")

	return cmd
}

// runParse executes the parse command.
func runParse(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg := config.DefaultConfig()
	applyCLIOverrides(cfg)

	pipe := pipeline.New(logger)
	pipe.Use(&pipeline.TrimMiddleware{})
	pipe.Use(pipeline.NewTitleSanitizeMiddleware())

	var store storage.Storage
	if outputPath != "" {
		var err error
		store, err = storage.NewFileStorage(cfg.Storage.Type, outputPath, logger)
		if err != nil {
			return fmt.Errorf("create storage: %w", err)
		}
	}

	var total, reported int
	for _, src := range inputSources(args) {
		htmlSrc, name, err := src()
		if err != nil {
			return err
		}

		layout := pageLayout(cfg, htmlSrc)
		p := scholar.NewParser(cfg.Site.BaseURL, layout, logger)

		p.OnNumResults = func(n int) error {
			reported = n
			return nil
		}

		var batch []*types.Article
		p.OnArticle = func(art *types.Article) error {
			art.SourceURL = name
			processed, err := pipe.Process(art)
			if err != nil {
				return err
			}
			if processed == nil {
				return nil
			}
			batch = append(batch, processed)
			return nil
		}

		if err := p.Parse(htmlSrc); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}

		if store != nil {
			if err := store.Store(batch); err != nil {
				return err
			}
		} else {
			for _, art := range batch {
				b, err := art.ToJSON()
				if err != nil {
					return err
				}
				fmt.Println(string(b))
			}
		}
		total += len(batch)

		logger.Info("file parsed", "source", name, "layout", layout.Name(), "articles", len(batch))
	}

	if store != nil {
		if err := store.Close(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Parsed %d articles", total)
		if reported > 0 {
			fmt.Fprintf(os.Stderr, " (site reported %d total)", reported)
		}
		fmt.Fprintln(os.Stderr)
	}
	return nil
}

// inputSources returns one lazy reader per input: the named files, or
// stdin when none are given.
func inputSources(args []string) []func() (string, string, error) {
	if len(args) == 0 {
		return []func() (string, string, error){
			func() (string, string, error) {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return "", "", fmt.Errorf("read stdin: %w", err)
				}
				return string(data), "stdin", nil
			},
		}
	}

	sources := make([]func() (string, string, error), len(args))
	for i, path := range args {
		path := path
		sources[i] = func() (string, string, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return "", "", fmt.Errorf("read %s: %w", path, err)
			}
			return string(data), path, nil
		}
	}
	return sources
}

// pageLayout resolves the layout for one page of HTML.
func pageLayout(cfg *config.Config, htmlSrc string) scholar.Layout {
	switch cfg.Site.Layout {
	case "legacy":
		return scholar.LegacyLayout{}
	case "rich":
		return scholar.RichLayout{}
	default:
		return scholar.DetectLayout(htmlSrc)
	}
}
