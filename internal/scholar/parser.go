package scholar

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/citegrab/citegrab/internal/config"
	"github.com/citegrab/citegrab/internal/types"
)

const (
	// containerTag and resultClass identify the element wrapping one search result.
	containerTag = "div"
	resultClass  = "gs_r"

	// statsID is the id of the page-level result-count node.
	statsID = "gs_ab_md"

	// Path prefixes of per-result footer links.
	citedByPathPrefix = "/scholar?cites"
	clusterPathPrefix = "/scholar?cluster"
)

// yearPattern matches a four-digit publication year in byline text.
var yearPattern = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

// Parser extracts bibliographic records from one search-results page.
//
// The active Layout decides where each field lives in a result container;
// link classification, URL resolution, and record cleanup are shared across
// layouts. A Parser carries only read-only configuration between Parse calls,
// so one instance may parse many documents sequentially; concurrent use needs
// one Parser per goroutine.
type Parser struct {
	site   string
	layout Layout
	logger *slog.Logger

	// OnArticle is invoked once per valid parsed record, in document order.
	// A non-nil error aborts the remaining iteration and is returned from
	// Parse. Nil means records are parsed and discarded.
	OnArticle func(*types.Article) error

	// OnNumResults is invoked at most once per Parse call, when the page
	// reports a total result count. Nil means the count is not reported.
	OnNumResults func(int) error
}

// NewParser creates a Parser for the given site base URL and layout.
// An empty site falls back to the process-wide default; a nil layout
// falls back to the current result markup.
func NewParser(site string, layout Layout, logger *slog.Logger) *Parser {
	if site == "" {
		site = config.DefaultSiteBaseURL
	}
	if layout == nil {
		layout = RichLayout{}
	}
	return &Parser{
		site:   strings.TrimRight(site, "/"),
		layout: layout,
		logger: logger.With("component", "article_parser", "layout", layout.Name()),
	}
}

// Site returns the configured site base URL.
func (p *Parser) Site() string { return p.site }

// Parse processes one results page supplied as raw HTML. It reports the
// global result count via OnNumResults, then emits every result that yields
// a non-empty title via OnArticle. The input is never modified; results are
// delivered through the callbacks only.
func (p *Parser) Parse(htmlSrc string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlSrc))
	if err != nil {
		return &types.ParseError{URL: p.site, Err: err}
	}
	return p.ParseDocument(doc)
}

// ParseDocument is Parse for an already-built document tree.
func (p *Parser) ParseDocument(doc *goquery.Document) error {
	if err := p.parseGlobals(doc); err != nil {
		return err
	}

	var handlerErr error
	position := 0
	doc.Find(containerTag).EachWithBreak(func(_ int, div *goquery.Selection) bool {
		if !isResultContainer(div) {
			return true
		}

		art := types.NewArticle(p.site)
		art.Position = position
		position++

		p.layout.Extract(p, div, art)
		p.cleanArticle(art)

		if !art.Valid() {
			// Sponsored blocks and citation-only stubs land here.
			p.logger.Debug("result container yielded no title", "position", art.Position)
			return true
		}

		if p.OnArticle != nil {
			if err := p.OnArticle(art); err != nil {
				handlerErr = err
				return false
			}
		}
		return true
	})

	return handlerErr
}

// parseGlobals locates the page-level stats node and reports the total
// result count. Malformed or absent stats text is expected on some pages
// and is silently ignored.
func (p *Parser) parseGlobals(doc *goquery.Document) error {
	stats := doc.Find("#" + statsID).First()
	if stats.Length() == 0 {
		return nil
	}

	// The count sits in the node's own text, e.g. "About 1,234 results".
	fields := strings.Fields(firstTextFragment(stats))
	if len(fields) < 2 {
		return nil
	}
	count, ok := asInt(strings.ReplaceAll(fields[1], ",", ""))
	if !ok {
		return nil
	}

	if p.OnNumResults != nil {
		return p.OnNumResults(count)
	}
	return nil
}

// parseLinks classifies the anchors of a result's footer block. It is shared
// unchanged by every layout. Unrecognized anchors are ignored; when several
// anchors target the same field the last one in document order wins.
func (p *Parser) parseLinks(block *goquery.Selection, art *types.Article) {
	block.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := a.Text()

		switch {
		case strings.HasPrefix(href, citedByPathPrefix):
			if strings.HasPrefix(text, "Cited by") {
				tokens := strings.Fields(text)
				if n, ok := asInt(tokens[len(tokens)-1]); ok {
					art.Set(types.FieldNumCitations, n)
				}
			}
			cited := stripQueryArg(resolveURL(p.site, href), "num")
			art.Set(types.FieldURLCitations, cited)
			if id := queryArg(cited, "cites"); id != "" {
				art.AppendClusterID(id)
			}

		case strings.HasPrefix(href, clusterPathPrefix):
			if strings.HasPrefix(text, "All ") {
				tokens := strings.Fields(text)
				if len(tokens) > 1 {
					if n, ok := asInt(tokens[1]); ok {
						art.Set(types.FieldNumVersions, n)
					}
				}
			}
			art.Set(types.FieldURLVersions, stripQueryArg(resolveURL(p.site, href), "num"))
		}
	})
}

// setTitleLink fills title, url, and url_pdf from a result's title anchor.
// The title is the concatenation of all text fragments under the anchor.
func (p *Parser) setTitleLink(a *goquery.Selection, art *types.Article) {
	art.Set(types.FieldTitle, a.Text())

	href, ok := a.Attr("href")
	if !ok || href == "" {
		return
	}
	u := resolveURL(p.site, href)
	art.Set(types.FieldURL, u)
	if strings.HasSuffix(u, ".pdf") {
		art.Set(types.FieldURLPDF, u)
	}
}

// setYear scans byline text for a publication year and records the first
// match. Bylines without a recognizable year leave the field unset.
func (p *Parser) setYear(byline *goquery.Selection, art *types.Article) {
	if year := yearPattern.FindString(byline.Text()); year != "" {
		art.Set(types.FieldYear, year)
	}
}

// cleanArticle is the post-extraction normalization pass. It runs exactly
// once per container, before the title-presence check.
func (p *Parser) cleanArticle(art *types.Article) {
	if title, ok := art.Get(types.FieldTitle); ok {
		if s, ok := title.(string); ok {
			art.Set(types.FieldTitle, strings.TrimSpace(s))
		}
	}
}

// firstTextFragment returns the first non-blank text node under the
// selection, in depth-first document order. Counts wrapped in child
// elements are found the same as bare text.
func firstTextFragment(s *goquery.Selection) string {
	for _, n := range s.Nodes {
		if t := firstTextNode(n); t != "" {
			return t
		}
	}
	return ""
}

func firstTextNode(n *html.Node) string {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return c.Data
		}
		if t := firstTextNode(c); t != "" {
			return t
		}
	}
	return ""
}
