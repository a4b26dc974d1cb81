package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/citegrab/citegrab/internal/config"
	"github.com/citegrab/citegrab/internal/fetcher"
	"github.com/citegrab/citegrab/internal/observability"
	"github.com/citegrab/citegrab/internal/pipeline"
	"github.com/citegrab/citegrab/internal/scholar"
	"github.com/citegrab/citegrab/internal/storage"
	"github.com/citegrab/citegrab/internal/types"
)

// Runner orchestrates one search: page URLs are built from the query,
// fetched with retries, parsed, run through the pipeline, and stored.
type Runner struct {
	cfg     *config.Config
	fetcher fetcher.Fetcher
	pipe    *pipeline.Pipeline
	store   storage.Storage
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Result summarizes a completed search run.
type Result struct {
	// NumResults is the site-reported total, 0 when the page carried none.
	NumResults int

	// ArticlesStored is the number of articles that survived the pipeline.
	ArticlesStored int

	// PagesFetched is the number of result pages processed.
	PagesFetched int
}

// New creates a Runner. Pipeline, storage and metrics may be nil when the
// caller only wants callbacks.
func New(cfg *config.Config, f fetcher.Fetcher, pipe *pipeline.Pipeline, store storage.Storage, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		fetcher: f,
		pipe:    pipe,
		store:   store,
		metrics: metrics,
		logger:  logger.With("component", "engine"),
	}
}

// Run executes the search and returns once all pages are processed, the
// result set is exhausted, or the context is cancelled.
func (r *Runner) Run(ctx context.Context, q scholar.Query) (*Result, error) {
	result := &Result{}
	layout := r.fixedLayout()

	maxPages := r.cfg.Search.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	for page := 0; page < maxPages; page++ {
		if page > 0 {
			if err := r.politenessPause(ctx); err != nil {
				return result, err
			}
		}

		pageURL := q.URL(r.cfg.Site.BaseURL, page)
		resp, err := r.fetchWithRetry(ctx, pageURL)
		if err != nil {
			return result, err
		}
		result.PagesFetched++
		if r.metrics != nil {
			r.metrics.PagesFetched.Add(1)
			r.metrics.BytesDownloaded.Add(int64(len(resp.Body)))
		}

		htmlSrc := string(resp.Body)
		pageLayout := layout
		if pageLayout == nil {
			pageLayout = scholar.DetectLayout(htmlSrc)
		}

		stored, err := r.parsePage(pageURL, htmlSrc, pageLayout, result)
		if err != nil {
			if r.metrics != nil {
				r.metrics.ParseFailures.Add(1)
			}
			return result, err
		}
		if r.metrics != nil {
			r.metrics.PagesParsed.Add(1)
		}

		r.logger.Info("page processed",
			"page", page,
			"url", pageURL,
			"stored", stored,
		)

		// A page with no results means the set is exhausted.
		if stored == 0 {
			break
		}
	}

	return result, nil
}

// fixedLayout returns the configured layout, or nil for per-page detection.
func (r *Runner) fixedLayout() scholar.Layout {
	switch r.cfg.Site.Layout {
	case "legacy":
		return scholar.LegacyLayout{}
	case "rich":
		return scholar.RichLayout{}
	default:
		return nil
	}
}

// parsePage runs one page of HTML through the parser, pipeline and storage.
// It returns the number of articles that survived the pipeline.
func (r *Runner) parsePage(pageURL, htmlSrc string, layout scholar.Layout, result *Result) (int, error) {
	p := scholar.NewParser(r.cfg.Site.BaseURL, layout, r.logger)

	p.OnNumResults = func(n int) error {
		result.NumResults = n
		return nil
	}

	var batch []*types.Article
	p.OnArticle = func(art *types.Article) error {
		art.SourceURL = pageURL
		if r.metrics != nil {
			r.metrics.ArticlesParsed.Add(1)
		}

		if r.pipe != nil {
			processed, err := r.pipe.Process(art)
			if err != nil {
				return err
			}
			if processed == nil {
				if r.metrics != nil {
					r.metrics.ArticlesDropped.Add(1)
				}
				return nil
			}
			art = processed
		}

		batch = append(batch, art)
		return nil
	}

	if err := p.Parse(htmlSrc); err != nil {
		return 0, err
	}

	if r.store != nil && len(batch) > 0 {
		if err := r.store.Store(batch); err != nil {
			return 0, err
		}
	}
	if r.metrics != nil {
		r.metrics.ArticlesStored.Add(int64(len(batch)))
	}
	result.ArticlesStored += len(batch)
	return len(batch), nil
}

// fetchWithRetry fetches a URL, retrying retryable failures up to the
// configured maximum with the server-suggested or configured delay.
func (r *Runner) fetchWithRetry(ctx context.Context, pageURL string) (*types.Response, error) {
	req, err := types.NewRequest(pageURL)
	if err != nil {
		return nil, err
	}
	req.MaxRetries = r.cfg.Fetcher.MaxRetries

	var lastErr error
	for attempt := 0; attempt <= req.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.cfg.Fetcher.RetryDelay
			var fe *types.FetchError
			if errors.As(lastErr, &fe) && fe.RetryAfter > 0 {
				delay = fe.RetryAfter
			}
			if r.metrics != nil {
				r.metrics.FetchRetries.Add(1)
			}
			r.logger.Warn("retrying fetch", "url", pageURL, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := r.fetcher.Fetch(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if r.metrics != nil {
			r.metrics.FetchesFailed.Add(1)
			if errors.Is(err, types.ErrBotWall) {
				r.metrics.BotWallHits.Add(1)
			}
		}

		var fe *types.FetchError
		if !errors.As(err, &fe) || !fe.Retryable {
			return nil, err
		}
	}

	return nil, &types.FetchError{URL: pageURL, Err: types.ErrMaxRetries, Retryable: false}
}

// politenessPause waits the configured delay between page fetches.
func (r *Runner) politenessPause(ctx context.Context) error {
	if r.cfg.Fetcher.PolitenessDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(fetcher.RandomDelay(r.cfg.Fetcher.PolitenessDelay)):
		return nil
	}
}
