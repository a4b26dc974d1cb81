package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/citegrab/citegrab/internal/config"
	"github.com/citegrab/citegrab/internal/observability"
	"github.com/citegrab/citegrab/internal/pipeline"
	"github.com/citegrab/citegrab/internal/scholar"
	"github.com/citegrab/citegrab/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const resultsPage = `<html><body>
<div id="gs_ab_md">About 120 results (0.05 sec)</div>
<div class="gs_r">
  <div class="gs_ri">
    <h3 class="gs_rt"><a href="https://example.org/paper1">First paper</a></h3>
    <div class="gs_a">A Author - Journal, 2019 - example.org</div>
    <div class="gs_fl"><a href="/scholar?cites=111&num=20">Cited by 42</a></div>
  </div>
</div>
<div class="gs_r">
  <div class="gs_ri">
    <h3 class="gs_rt"><a href="https://example.org/paper2">Second paper</a></h3>
    <div class="gs_a">B Author - Conf, 2021 - example.org</div>
  </div>
</div>
</body></html>`

const emptyPage = `<html><body><div id="gs_ab_md">About 120 results</div></body></html>`

// pagedFetcher serves canned HTML keyed by fetch order.
type pagedFetcher struct {
	mu    sync.Mutex
	pages []string
	errs  []error
	calls int
}

func (f *pagedFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	body := emptyPage
	if i < len(f.pages) {
		body = f.pages[i]
	}
	return types.NewBrowserResponse(req, 200, []byte(body), req.URLString(), time.Millisecond), nil
}

func (f *pagedFetcher) Close() error { return nil }
func (f *pagedFetcher) Type() string { return "stub" }

// memoryStorage collects stored articles in-process.
type memoryStorage struct {
	mu       sync.Mutex
	articles []*types.Article
}

func (s *memoryStorage) Store(articles []*types.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = append(s.articles, articles...)
	return nil
}

func (s *memoryStorage) Close() error { return nil }
func (s *memoryStorage) Name() string { return "memory" }

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Search.MaxPages = 3
	cfg.Fetcher.PolitenessDelay = 0
	cfg.Fetcher.RetryDelay = time.Millisecond
	cfg.Site.Layout = "rich"
	return cfg
}

func TestRunnerStopsOnEmptyPage(t *testing.T) {
	f := &pagedFetcher{pages: []string{resultsPage, emptyPage}}
	store := &memoryStorage{}
	metrics := observability.NewMetrics(testLogger)

	r := New(testConfig(), f, nil, store, metrics, testLogger)
	result, err := r.Run(context.Background(), scholar.Query{Text: "deep learning"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.PagesFetched != 2 {
		t.Errorf("pages fetched = %d, want 2", result.PagesFetched)
	}
	if result.ArticlesStored != 2 {
		t.Errorf("articles stored = %d, want 2", result.ArticlesStored)
	}
	if result.NumResults != 120 {
		t.Errorf("num results = %d, want 120", result.NumResults)
	}
	if len(store.articles) != 2 {
		t.Fatalf("storage holds %d articles, want 2", len(store.articles))
	}
	if got := store.articles[0].Title(); got != "First paper" {
		t.Errorf("first title = %q", got)
	}
	if n, _ := store.articles[0].GetInt(types.FieldNumCitations); n != 42 {
		t.Errorf("citations = %d, want 42", n)
	}
	if metrics.ArticlesParsed.Load() != 2 {
		t.Errorf("parsed metric = %d, want 2", metrics.ArticlesParsed.Load())
	}
}

func TestRunnerRetriesRetryableFetch(t *testing.T) {
	retryErr := &types.FetchError{
		URL:       "x",
		Err:       fmt.Errorf("connection reset"),
		Retryable: true,
	}
	f := &pagedFetcher{
		errs:  []error{retryErr, nil},
		pages: []string{"", resultsPage},
	}
	store := &memoryStorage{}

	cfg := testConfig()
	cfg.Search.MaxPages = 1

	r := New(cfg, f, nil, store, nil, testLogger)
	result, err := r.Run(context.Background(), scholar.Query{Text: "q"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ArticlesStored != 2 {
		t.Errorf("articles stored = %d, want 2", result.ArticlesStored)
	}
	if f.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", f.calls)
	}
}

func TestRunnerStopsOnPermanentFetchError(t *testing.T) {
	f := &pagedFetcher{
		errs: []error{&types.FetchError{URL: "x", Err: types.ErrBotWall, Retryable: false}},
	}

	r := New(testConfig(), f, nil, &memoryStorage{}, nil, testLogger)
	_, err := r.Run(context.Background(), scholar.Query{Text: "q"})
	if err == nil {
		t.Fatal("expected error from permanent fetch failure")
	}
	if f.calls != 1 {
		t.Errorf("fetch calls = %d, want 1 (no retry)", f.calls)
	}
}

func TestRunnerAppliesPipeline(t *testing.T) {
	f := &pagedFetcher{pages: []string{resultsPage}}
	store := &memoryStorage{}

	pipe := pipeline.New(testLogger)
	pipe.Use(&pipeline.YearRangeMiddleware{From: 2020})

	cfg := testConfig()
	cfg.Search.MaxPages = 1

	r := New(cfg, f, pipe, store, nil, testLogger)
	result, err := r.Run(context.Background(), scholar.Query{Text: "q"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ArticlesStored != 1 {
		t.Errorf("articles stored = %d, want 1 (2019 paper dropped)", result.ArticlesStored)
	}
	if len(store.articles) != 1 || store.articles[0].Title() != "Second paper" {
		t.Errorf("unexpected surviving article set: %+v", store.articles)
	}
}
