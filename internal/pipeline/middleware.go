package pipeline

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/citegrab/citegrab/internal/types"
)

// --- Bibliographic Middleware ---

// TitleSanitizeMiddleware cleans residual markup out of the title field.
// Result titles occasionally carry nested tags or entity escapes when the
// markup is malformed.
type TitleSanitizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewTitleSanitizeMiddleware() *TitleSanitizeMiddleware {
	return &TitleSanitizeMiddleware{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *TitleSanitizeMiddleware) Name() string { return "title_sanitize" }

func (m *TitleSanitizeMiddleware) Process(art *types.Article) (*types.Article, error) {
	s := art.Title()
	if s == "" {
		return art, nil
	}
	cleaned := m.stripRe.ReplaceAllString(s, "")
	cleaned = html.UnescapeString(cleaned)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	art.Set(types.FieldTitle, cleaned)
	return art, nil
}

// YearRangeMiddleware drops articles whose publication year falls outside
// the configured window. The year field is the verbatim string matched in
// the byline; articles with no year, or an unparseable one, survive.
type YearRangeMiddleware struct {
	From int
	To   int
}

func (m *YearRangeMiddleware) Name() string { return "year_range" }

func (m *YearRangeMiddleware) Process(art *types.Article) (*types.Article, error) {
	year, err := strconv.Atoi(art.GetString(types.FieldYear))
	if err != nil {
		return art, nil
	}
	if m.From > 0 && year < m.From {
		return nil, nil
	}
	if m.To > 0 && year > m.To {
		return nil, nil
	}
	return art, nil
}

// MinCitationsMiddleware drops articles below a citation threshold.
// Articles with no citation count are treated as zero.
type MinCitationsMiddleware struct {
	Min int
}

func (m *MinCitationsMiddleware) Name() string { return "min_citations" }

func (m *MinCitationsMiddleware) Process(art *types.Article) (*types.Article, error) {
	if m.Min <= 0 {
		return art, nil
	}
	count, _ := art.GetInt(types.FieldNumCitations)
	if count < m.Min {
		return nil, nil
	}
	return art, nil
}
