package integration

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/citegrab/citegrab/internal/config"
	"github.com/citegrab/citegrab/internal/fetcher"
	"github.com/citegrab/citegrab/internal/scholar"
	"github.com/citegrab/citegrab/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// TestLiveFetch fetches a real results page. The live site rate-limits
// aggressively, so this stays behind -short and tolerates bot walls.
func TestLiveFetch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live test")
	}

	cfg := config.DefaultConfig()
	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("create fetcher: %v", err)
	}
	defer f.Close()

	q := scholar.Query{Text: "information retrieval", ResultsPerPage: 10}
	req, _ := types.NewRequest(q.URL(cfg.Site.BaseURL, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := f.Fetch(ctx, req)
	if err != nil {
		if errors.Is(err, types.ErrBotWall) {
			t.Skip("live site served a bot wall")
		}
		t.Fatalf("fetch error: %v", err)
	}

	t.Logf("Status: %d", resp.StatusCode)
	t.Logf("Body size: %d bytes", len(resp.Body))
	t.Logf("Duration: %s", resp.FetchDuration)

	p := scholar.NewParser(cfg.Site.BaseURL, scholar.DetectLayout(string(resp.Body)), testLogger)
	var count int
	p.OnArticle = func(a *types.Article) error {
		count++
		t.Logf("  %d. %s", count, a.Title())
		return nil
	}
	if err := p.Parse(string(resp.Body)); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if count == 0 {
		t.Log("no articles extracted; page may be a challenge interstitial")
	}
}
