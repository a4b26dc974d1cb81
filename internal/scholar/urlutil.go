package scholar

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// hasClass reports whether name is one of the node's classes. The class
// attribute is treated as a whitespace-delimited list.
func hasClass(s *goquery.Selection, name string) bool {
	attr, ok := s.Attr("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(attr) {
		if c == name {
			return true
		}
	}
	return false
}

// isResultContainer reports whether the node wraps one search result.
func isResultContainer(s *goquery.Selection) bool {
	return goquery.NodeName(s) == containerTag && hasClass(s, resultClass)
}

// asInt parses text as an integer. The second return is false when text is
// not a valid integer literal; asInt never panics.
func asInt(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, false
	}
	return n, true
}

// resolveURL turns a site-relative path into an absolute URL. Paths that
// already carry a scheme are returned unchanged.
func resolveURL(site, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(site, "/") + "/" + strings.TrimLeft(path, "/")
}

// stripQueryArg removes every name=value segment for the given name from a
// URL's query string, preserving the order of the remaining segments. URLs
// without a query part are returned unchanged.
func stripQueryArg(rawURL, name string) string {
	base, query, found := strings.Cut(rawURL, "?")
	if !found {
		return rawURL
	}
	var kept []string
	for _, seg := range strings.Split(query, "&") {
		if segName, _, _ := strings.Cut(seg, "="); segName == name {
			continue
		}
		kept = append(kept, seg)
	}
	return base + "?" + strings.Join(kept, "&")
}

// queryArg returns the value of the first name=value segment in a URL's
// query string, or "" if none exists.
func queryArg(rawURL, name string) string {
	_, query, found := strings.Cut(rawURL, "?")
	if !found {
		return ""
	}
	for _, seg := range strings.Split(query, "&") {
		if segName, value, _ := strings.Cut(seg, "="); segName == name {
			return value
		}
	}
	return ""
}
