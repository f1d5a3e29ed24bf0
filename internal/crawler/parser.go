package crawler

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

// htmlMediaTypes are the Content-Types the spider parses.
var htmlMediaTypes = map[string]bool{
	"text/html":             true,
	"application/xhtml+xml": true,
}

// isHTML reports whether a Content-Type header value denotes HTML.
// An unparsable value is not HTML.
func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return htmlMediaTypes[strings.ToLower(mediaType)]
}

// decodeBody converts body to UTF-8 using the charset declared in the
// Content-Type header or in a <meta> tag, falling back to sniffing.
func decodeBody(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}
	return string(decoded), nil
}

// parseDocument parses decoded HTML. x/net/html repairs malformed markup,
// so errors only come from the reader.
func parseDocument(content string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// extractTitle returns the cleaned text of the first <title> element, or ""
// when the page has none.
func extractTitle(doc *html.Node) string {
	if doc == nil {
		return ""
	}
	raw := goquery.NewDocumentFromNode(doc).Find("title").First().Text()
	return cleanTitle(raw)
}

// cleanTitle removes line breaks, trims spaces and applies NFC.
func cleanTitle(raw string) string {
	title := strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(raw)
	return norm.NFC.String(strings.TrimSpace(title))
}
