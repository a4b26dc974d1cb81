package storage

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/citegrab/citegrab/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleArticle() *types.Article {
	art := types.NewArticle("https://scholar.google.com/scholar?q=machine+learning")
	art.Set(types.FieldTitle, "Random Forests")
	art.Set(types.FieldURL, "https://example.org/breiman2001")
	art.Set(types.FieldYear, "2001")
	art.Set(types.FieldNumCitations, 90000)
	art.AppendClusterID("13336350401459518253")
	return art
}

func TestJSONLStorage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")

	s, err := NewJSONLStorage(path, testLogger)
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}

	if err := s.Store([]*types.Article{sampleArticle(), sampleArticle()}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &doc); err != nil {
		t.Fatalf("unmarshal line: %v", err)
	}
	if doc[types.FieldTitle] != "Random Forests" {
		t.Errorf("title = %v", doc[types.FieldTitle])
	}
	if doc["_source_url"] == "" {
		t.Error("missing source url metadata")
	}
}

func TestJSONStorageWritesArrayOnClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	s, err := NewJSONStorage(path, testLogger)
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}
	if err := s.Store([]*types.Article{sampleArticle()}); err != nil {
		t.Fatalf("store: %v", err)
	}

	// Nothing written until Close
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should not exist before Close")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var docs []map[string]any
	if err := json.Unmarshal(data, &docs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
}

func TestCSVStorage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	s, err := NewCSVStorage(path, testLogger)
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}
	if err := s.Store([]*types.Article{sampleArticle()}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}

	titleCol := -1
	for i, h := range rows[0] {
		if h == types.FieldTitle {
			titleCol = i
		}
	}
	if titleCol == -1 {
		t.Fatal("title column missing from header")
	}
	if rows[1][titleCol] != "Random Forests" {
		t.Errorf("title cell = %q", rows[1][titleCol])
	}
}

func TestNewFileStorageUnknownType(t *testing.T) {
	if _, err := NewFileStorage("parquet", t.TempDir(), testLogger); err == nil {
		t.Error("expected error for unsupported storage type")
	}
}
