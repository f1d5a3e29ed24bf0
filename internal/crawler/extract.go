package crawler

import (
	"iter"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ExtractLinks returns the followable links of doc, resolved against base,
// in document order. An anchor is skipped when:
//   - it has no href
//   - its href carries a query string, even an empty one
//   - it resolves to base itself
//   - it resolves to a scheme other than http or https
//
// Fragments are removed from the returned links.
// Links to other hosts are kept. The sequence is lazy: anchors are only
// resolved as the caller ranges over it.
func ExtractLinks(doc *html.Node, base *url.URL) iter.Seq[*url.URL] {
	return func(yield func(*url.URL) bool) {
		if doc == nil || base == nil {
			return
		}
		baseKey := URLKey(base)

		goquery.NewDocumentFromNode(doc).Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, ok := a.Attr("href")
			if !ok {
				return true
			}
			link, ok := resolveLink(strings.TrimSpace(href), base, baseKey)
			if !ok {
				return true
			}
			return yield(link)
		})
	}
}

// resolveLink applies the extraction policy to a single href.
func resolveLink(href string, base *url.URL, baseKey string) (*url.URL, bool) {
	if strings.Contains(href, "?") {
		return nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	link := base.ResolveReference(ref)
	if checkFetchable(link) != nil {
		return nil, false
	}
	link.Fragment = ""
	link.RawFragment = ""
	if URLKey(link) == baseKey {
		return nil, false
	}
	return link, true
}
