package pipeline

import (
	"log/slog"
	"os"
	"testing"

	"github.com/citegrab/citegrab/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	art := types.NewArticle("https://scholar.google.com/scholar?q=test")
	art.Set(types.FieldTitle, "  Deep Residual Learning  ")
	art.Set(types.FieldURL, " https://example.org/paper ")

	result, err := p.Process(art)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Title() != "Deep Residual Learning" {
		t.Errorf("expected trimmed title, got %q", result.Title())
	}
	if result.GetString(types.FieldURL) != "https://example.org/paper" {
		t.Errorf("expected trimmed url, got %q", result.GetString(types.FieldURL))
	}
}

func TestRequiredFieldsMiddleware(t *testing.T) {
	m := &RequiredFieldsMiddleware{Fields: []string{types.FieldTitle}}

	art1 := types.NewArticle("")
	art1.Set(types.FieldTitle, "Attention Is All You Need")
	result, err := m.Process(art1)
	if err != nil || result == nil {
		t.Error("article with required field should pass")
	}

	// Missing required field drops the article (nil, nil)
	art2 := types.NewArticle("")
	art2.Set(types.FieldYear, "2017")
	result, _ = m.Process(art2)
	if result != nil {
		t.Error("article missing required field should be dropped")
	}

	// Empty-string required field drops too
	art3 := types.NewArticle("")
	art3.Set(types.FieldTitle, "")
	result, _ = m.Process(art3)
	if result != nil {
		t.Error("article with empty required field should be dropped")
	}
}

func TestTitleSanitizeMiddleware(t *testing.T) {
	m := NewTitleSanitizeMiddleware()
	art := types.NewArticle("")
	art.Set(types.FieldTitle, "<b>Generative</b> adversarial &amp;  networks")

	result, err := m.Process(art)
	if err != nil {
		t.Fatalf("sanitize error: %v", err)
	}
	if got := result.Title(); got != "Generative adversarial & networks" {
		t.Errorf("unexpected sanitized title: %q", got)
	}
}

func TestYearRangeMiddleware(t *testing.T) {
	m := &YearRangeMiddleware{From: 2000, To: 2020}

	tests := []struct {
		name string
		year string
		keep bool
	}{
		{"in range", "2015", true},
		{"below range", "1998", false},
		{"above range", "2024", false},
		{"no year", "", true},
		{"unparseable year", "19xx", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art := types.NewArticle("")
			art.Set(types.FieldTitle, "x")
			if tt.year != "" {
				art.Set(types.FieldYear, tt.year)
			}
			result, err := m.Process(art)
			if err != nil {
				t.Fatalf("year range error: %v", err)
			}
			if (result != nil) != tt.keep {
				t.Errorf("keep = %v, want %v", result != nil, tt.keep)
			}
		})
	}
}

func TestMinCitationsMiddleware(t *testing.T) {
	m := &MinCitationsMiddleware{Min: 10}

	cited := types.NewArticle("")
	cited.Set(types.FieldNumCitations, 261)
	if result, _ := m.Process(cited); result == nil {
		t.Error("article above threshold should pass")
	}

	uncited := types.NewArticle("")
	if result, _ := m.Process(uncited); result != nil {
		t.Error("article with no citations should be dropped at threshold 10")
	}
}

func TestFieldRenameMiddleware(t *testing.T) {
	m := &FieldRenameMiddleware{Mapping: map[string]string{types.FieldURLPDF: "pdf_link"}}

	art := types.NewArticle("")
	art.Set(types.FieldURLPDF, "https://example.org/paper.pdf")

	result, err := m.Process(art)
	if err != nil {
		t.Fatalf("rename error: %v", err)
	}
	if result.Has(types.FieldURLPDF) {
		t.Error("old field name should be gone")
	}
	if result.GetString("pdf_link") != "https://example.org/paper.pdf" {
		t.Errorf("renamed field lost value: %q", result.GetString("pdf_link"))
	}
}

func TestPipelineDropShortCircuits(t *testing.T) {
	p := New(testLogger)
	p.Use(&YearRangeMiddleware{From: 2000})
	p.Use(&DefaultValueMiddleware{Defaults: map[string]any{"marker": true}})

	art := types.NewArticle("")
	art.Set(types.FieldYear, "1987")

	result, err := p.Process(art)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result != nil {
		t.Error("dropped article should not continue through the chain")
	}
	if art.Has("marker") {
		t.Error("later middleware ran on a dropped article")
	}
}
