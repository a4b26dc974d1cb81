package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad site url", func(c *Config) { c.Site.BaseURL = "not-a-url" }},
		{"bad layout", func(c *Config) { c.Site.Layout = "modern" }},
		{"zero per page", func(c *Config) { c.Search.ResultsPerPage = 0 }},
		{"excess per page", func(c *Config) { c.Search.ResultsPerPage = 500 }},
		{"zero max pages", func(c *Config) { c.Search.MaxPages = 0 }},
		{"bad fetcher type", func(c *Config) { c.Fetcher.Type = "ftp" }},
		{"zero timeout", func(c *Config) { c.Fetcher.RequestTimeout = 0 }},
		{"bad storage type", func(c *Config) { c.Storage.Type = "sqlite" }},
		{"mongodb without uri", func(c *Config) {
			c.Storage.Type = "mongodb"
			c.Storage.MongoURI = ""
		}},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad metrics port", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Port = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "citegrab.yaml")
	content := `
site:
  base_url: https://scholar.example.com
  layout: legacy
search:
  max_pages: 5
fetcher:
  request_timeout: 45s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Site.BaseURL != "https://scholar.example.com" {
		t.Errorf("base_url = %q", cfg.Site.BaseURL)
	}
	if cfg.Site.Layout != "legacy" {
		t.Errorf("layout = %q", cfg.Site.Layout)
	}
	if cfg.Search.MaxPages != 5 {
		t.Errorf("max_pages = %d", cfg.Search.MaxPages)
	}
	if cfg.Fetcher.RequestTimeout != 45*time.Second {
		t.Errorf("request_timeout = %s", cfg.Fetcher.RequestTimeout)
	}

	// Untouched keys keep their defaults
	if cfg.Search.ResultsPerPage != 10 {
		t.Errorf("results_per_page default lost: %d", cfg.Search.ResultsPerPage)
	}
	if cfg.Storage.Type != "jsonl" {
		t.Errorf("storage type default lost: %q", cfg.Storage.Type)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/citegrab.yaml"); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidateURL(t *testing.T) {
	if err := ValidateURL("https://scholar.google.com"); err != nil {
		t.Errorf("valid URL rejected: %v", err)
	}
	for _, bad := range []string{"ftp://x.org", "scholar.google.com", "https://"} {
		if err := ValidateURL(bad); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", bad)
		}
	}
}
