// Package citegrab provides a public SDK for embedding citegrab as a library.
//
// Example usage:
//
//	client := citegrab.New(
//	    citegrab.WithLayout("rich"),
//	    citegrab.WithMaxPages(3),
//	)
//
//	client.OnArticle(func(a *citegrab.Article) error {
//	    fmt.Println(a.Title())
//	    return nil
//	})
//
//	client.ParseHTML(savedPage)
package citegrab

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/citegrab/citegrab/internal/config"
	"github.com/citegrab/citegrab/internal/engine"
	"github.com/citegrab/citegrab/internal/fetcher"
	"github.com/citegrab/citegrab/internal/pipeline"
	"github.com/citegrab/citegrab/internal/scholar"
	"github.com/citegrab/citegrab/internal/storage"
	"github.com/citegrab/citegrab/internal/types"
)

// Article is one extracted bibliographic record.
type Article = types.Article

// Query describes a search to run.
type Query = scholar.Query

// Result summarizes a completed search.
type Result = engine.Result

// Well-known record field names.
const (
	FieldTitle        = types.FieldTitle
	FieldURL          = types.FieldURL
	FieldURLPDF       = types.FieldURLPDF
	FieldYear         = types.FieldYear
	FieldNumCitations = types.FieldNumCitations
	FieldURLCitations = types.FieldURLCitations
	FieldClusterID    = types.FieldClusterID
	FieldNumVersions  = types.FieldNumVersions
	FieldURLVersions  = types.FieldURLVersions
)

// Client is the high-level API for using citegrab as a library.
type Client struct {
	cfg          *config.Config
	logger       *slog.Logger
	onArticle    func(*Article) error
	onNumResults func(int) error
}

// Option configures a Client.
type Option func(*config.Config)

// WithSite sets the site base URL.
func WithSite(baseURL string) Option {
	return func(c *config.Config) { c.Site.BaseURL = baseURL }
}

// WithLayout forces a result markup layout: "auto", "legacy" or "rich".
func WithLayout(layout string) Option {
	return func(c *config.Config) { c.Site.Layout = layout }
}

// WithMaxPages sets how many result pages a search fetches.
func WithMaxPages(n int) Option {
	return func(c *config.Config) { c.Search.MaxPages = n }
}

// WithFetcher selects the fetcher type: "http" or "browser".
func WithFetcher(fetcherType string) Option {
	return func(c *config.Config) { c.Fetcher.Type = fetcherType }
}

// WithDelay sets the politeness delay between page fetches.
func WithDelay(d time.Duration) Option {
	return func(c *config.Config) { c.Fetcher.PolitenessDelay = d }
}

// WithUserAgent sets a custom User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *config.Config) { c.Fetcher.UserAgents = []string{ua} }
}

// WithOutput sets the output format and path used by Search.
func WithOutput(format, path string) Option {
	return func(c *config.Config) {
		c.Storage.Type = format
		c.Storage.OutputPath = path
	}
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(c *config.Config) { c.Logging.Level = "debug" }
}

// New creates a Client with the given options.
func New(opts ...Option) *Client {
	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	level := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return &Client{
		cfg:    cfg,
		logger: logger,
	}
}

// OnArticle registers a callback invoked once per extracted record, in
// document order. Returning an error aborts the current page.
func (c *Client) OnArticle(cb func(*Article) error) {
	c.onArticle = cb
}

// OnNumResults registers a callback for the site-reported result total.
func (c *Client) OnNumResults(cb func(int) error) {
	c.onNumResults = cb
}

// ParseHTML extracts records from one results page supplied as raw HTML
// and delivers them to the registered callbacks.
func (c *Client) ParseHTML(htmlSrc string) error {
	p := scholar.NewParser(c.cfg.Site.BaseURL, c.layout(htmlSrc), c.logger)
	p.OnArticle = c.onArticle
	p.OnNumResults = c.onNumResults
	return p.Parse(htmlSrc)
}

// Search runs a live search: pages are fetched, parsed, delivered to the
// registered callbacks, and written to the configured output.
func (c *Client) Search(ctx context.Context, q Query) (*Result, error) {
	f, err := fetcher.New(c.cfg, c.logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	store, err := storage.New(&c.cfg.Storage, c.logger)
	if err != nil {
		return nil, fmt.Errorf("create storage: %w", err)
	}

	pipe := pipeline.New(c.logger)
	pipe.Use(&pipeline.TrimMiddleware{})
	if c.onArticle != nil {
		pipe.Use(&callbackMiddleware{cb: c.onArticle})
	}

	runner := engine.New(c.cfg, f, pipe, store, nil, c.logger)
	result, runErr := runner.Run(ctx, q)

	if err := store.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return result, runErr
}

// layout resolves the configured layout against a page of HTML.
func (c *Client) layout(htmlSrc string) scholar.Layout {
	switch c.cfg.Site.Layout {
	case "legacy":
		return scholar.LegacyLayout{}
	case "rich":
		return scholar.RichLayout{}
	default:
		return scholar.DetectLayout(htmlSrc)
	}
}

// callbackMiddleware surfaces pipeline articles to the SDK callback.
type callbackMiddleware struct {
	cb func(*Article) error
}

func (m *callbackMiddleware) Name() string { return "sdk_callback" }

func (m *callbackMiddleware) Process(art *types.Article) (*types.Article, error) {
	if err := m.cb(art); err != nil {
		return nil, err
	}
	return art, nil
}
