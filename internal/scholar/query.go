package scholar

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query describes one search against the site.
type Query struct {
	// Text is the free-form search phrase.
	Text string

	// Author restricts results to a specific author, if set.
	Author string

	// YearFrom and YearTo bound the publication year; zero means unbounded.
	YearFrom int
	YearTo   int

	// ResultsPerPage is how many results each page should carry.
	ResultsPerPage int

	// Lang is the interface language code, e.g. "en".
	Lang string
}

// URL builds the results-page URL for the given zero-based page index.
func (q Query) URL(site string, page int) string {
	text := q.Text
	if q.Author != "" {
		text = strings.TrimSpace(text + fmt.Sprintf(" author:%q", q.Author))
	}

	perPage := q.ResultsPerPage
	if perPage <= 0 {
		perPage = 10
	}
	lang := q.Lang
	if lang == "" {
		lang = "en"
	}

	v := url.Values{}
	v.Set("q", text)
	v.Set("hl", lang)
	v.Set("num", strconv.Itoa(perPage))
	if page > 0 {
		v.Set("start", strconv.Itoa(page*perPage))
	}
	if q.YearFrom > 0 {
		v.Set("as_ylo", strconv.Itoa(q.YearFrom))
	}
	if q.YearTo > 0 {
		v.Set("as_yhi", strconv.Itoa(q.YearTo))
	}

	return strings.TrimRight(site, "/") + "/scholar?" + v.Encode()
}
