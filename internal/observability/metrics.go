package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational metrics for a search run.
type Metrics struct {
	// Fetch metrics
	PagesFetched  atomic.Int64
	FetchesFailed atomic.Int64
	FetchRetries  atomic.Int64
	BotWallHits   atomic.Int64

	// Parse metrics
	PagesParsed    atomic.Int64
	ParseFailures  atomic.Int64
	ArticlesParsed atomic.Int64

	// Pipeline/storage metrics
	ArticlesDropped atomic.Int64
	ArticlesStored  atomic.Int64

	BytesDownloaded atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"citegrab_pages_fetched_total", "Total result pages fetched", m.PagesFetched.Load()},
		{"citegrab_fetches_failed_total", "Total failed fetches", m.FetchesFailed.Load()},
		{"citegrab_fetch_retries_total", "Total fetch retries", m.FetchRetries.Load()},
		{"citegrab_bot_wall_hits_total", "Total bot challenge pages hit", m.BotWallHits.Load()},
		{"citegrab_pages_parsed_total", "Total result pages parsed", m.PagesParsed.Load()},
		{"citegrab_parse_failures_total", "Total page parse failures", m.ParseFailures.Load()},
		{"citegrab_articles_parsed_total", "Total articles extracted", m.ArticlesParsed.Load()},
		{"citegrab_articles_dropped_total", "Total articles dropped by the pipeline", m.ArticlesDropped.Load()},
		{"citegrab_articles_stored_total", "Total articles stored", m.ArticlesStored.Load()},
		{"citegrab_bytes_downloaded_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"pages_fetched":    m.PagesFetched.Load(),
		"fetches_failed":   m.FetchesFailed.Load(),
		"fetch_retries":    m.FetchRetries.Load(),
		"bot_wall_hits":    m.BotWallHits.Load(),
		"pages_parsed":     m.PagesParsed.Load(),
		"parse_failures":   m.ParseFailures.Load(),
		"articles_parsed":  m.ArticlesParsed.Load(),
		"articles_dropped": m.ArticlesDropped.Load(),
		"articles_stored":  m.ArticlesStored.Load(),
		"bytes_downloaded": m.BytesDownloaded.Load(),
	}
}
