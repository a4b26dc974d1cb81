package scholar

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"github.com/citegrab/citegrab/internal/types"
)

// Layout locates the per-result fields in one result container. The source
// site has reshuffled its result markup over the years; each revision gets
// its own Layout while link classification and cleanup stay on the Parser.
type Layout interface {
	// Name returns the layout identifier.
	Name() string

	// Extract populates art from the given result container. Missing
	// elements simply leave their fields unset.
	Extract(p *Parser, div *goquery.Selection, art *types.Article)
}

// LegacyLayout handles the original result markup: the title anchor lives in
// a gs_rt heading block and the byline and footer links sit inside a font
// element as gs_a/gs_fl spans.
type LegacyLayout struct{}

func (LegacyLayout) Name() string { return "legacy" }

func (LegacyLayout) Extract(p *Parser, div *goquery.Selection, art *types.Article) {
	div.Children().Each(func(_ int, tag *goquery.Selection) {
		switch {
		case goquery.NodeName(tag) == "div" && tag.HasClass("gs_rt"):
			if a := tag.Find("h3 > a").First(); a.Length() > 0 {
				p.setTitleLink(a, art)
			}
		case goquery.NodeName(tag) == "font":
			tag.Children().Each(func(_ int, inner *goquery.Selection) {
				if goquery.NodeName(inner) != "span" {
					return
				}
				switch {
				case inner.HasClass("gs_a"):
					p.setYear(inner, art)
				case inner.HasClass("gs_fl"):
					p.parseLinks(inner, art)
				}
			})
		}
	})
}

// RichLayout handles the post-2012 result markup: the result's sections are
// grouped in a gs_ri block with an h3.gs_rt title, a gs_a byline, and a
// gs_fl footer; a gs_ttss sidebar may carry extra links.
type RichLayout struct{}

func (RichLayout) Name() string { return "rich" }

func (RichLayout) Extract(p *Parser, div *goquery.Selection, art *types.Article) {
	if sidebar := div.Find("div.gs_ttss").First(); sidebar.Length() > 0 {
		p.parseLinks(sidebar, art)
	}

	ri := div.Find("div.gs_ri").First()
	if ri.Length() == 0 {
		return
	}

	if a := ri.Find("h3.gs_rt a").First(); a.Length() > 0 {
		p.setTitleLink(a, art)
	}
	if byline := ri.Find("div.gs_a").First(); byline.Length() > 0 {
		p.setYear(byline, art)
	}
	if footer := ri.Find("div.gs_fl").First(); footer.Length() > 0 {
		p.parseLinks(footer, art)
	}
}

// XPath probes used by DetectLayout. Class attributes are matched as
// whitespace-delimited lists, not substrings.
const (
	richProbe   = `//div[contains(concat(' ', normalize-space(@class), ' '), ' gs_ri ')]`
	legacyProbe = `//div[contains(concat(' ', normalize-space(@class), ' '), ' gs_rt ')]/h3`
)

// DetectLayout sniffs which markup revision a page uses. Pages that match
// neither probe get the rich layout, which also covers empty result sets.
func DetectLayout(htmlSrc string) Layout {
	doc, err := htmlquery.Parse(strings.NewReader(htmlSrc))
	if err != nil {
		return RichLayout{}
	}
	if n, err := htmlquery.Query(doc, richProbe); err == nil && n != nil {
		return RichLayout{}
	}
	if n, err := htmlquery.Query(doc, legacyProbe); err == nil && n != nil {
		return LegacyLayout{}
	}
	return RichLayout{}
}
