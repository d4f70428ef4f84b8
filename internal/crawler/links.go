package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pseudoSchemes never yield fetchable documents and are dropped outright
// during link extraction, before safety validation.
var pseudoSchemes = []string{"javascript:", "data:", "vbscript:", "mailto:", "tel:"}

// ExtractLinks parses an HTML body and returns the normalized absolute URLs
// of its anchors. Relative hrefs are resolved against base, fragments are
// stripped, pseudo-scheme links are skipped, and every candidate must pass
// the safety validator.
func ExtractLinks(base *url.URL, body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var links []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || hasPseudoScheme(href) {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		normalized, err := NormalizeURL(resolved.String())
		if err != nil || !IsSafe(normalized) {
			return
		}
		if _, dup := seen[normalized]; dup {
			return
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	})
	return links, nil
}

func hasPseudoScheme(href string) bool {
	lowered := strings.ToLower(strings.TrimSpace(href))
	for _, scheme := range pseudoSchemes {
		if strings.HasPrefix(lowered, scheme) {
			return true
		}
	}
	return false
}
