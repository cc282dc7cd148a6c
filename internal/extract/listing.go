package extract

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Raj-Taware/credit-scrape/internal/config"
	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// ErrNoCards is returned when the listing selector matches nothing.
// Usually the bank changed its markup or blocked the request.
var ErrNoCards = errors.New("listing selector matched no cards")

// ParseListing extracts the card links of a bank's listing page.
//
// Every element matched by the strategy's ListSelector is one card. The card
// name is the trimmed text of the first NameSelector match inside it and the
// link is the href of the first LinkSelector match, resolved against baseURL.
// Cards without a name or a usable link are skipped, and so are links whose
// path matches one of IgnorePatterns. Duplicate links keep their first
// occurrence. MaxCards, when positive, caps the result.
func ParseListing(r io.Reader, baseURL string, s config.Strategy) ([]model.CardLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	items := doc.Find(s.ListSelector)
	if items.Length() == 0 {
		return nil, ErrNoCards
	}

	links := make([]model.CardLink, 0, items.Length())
	seen := make(map[string]bool)

	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if s.MaxCards > 0 && len(links) >= s.MaxCards {
			return false
		}

		name := collapseSpaces(item.Find(s.NameSelector).First().Text())
		if name == "" {
			return true
		}

		href, ok := item.Find(s.LinkSelector).First().Attr("href")
		if !ok {
			return true
		}
		link := resolveURL(base, href)
		if link == "" || ignored(link, s.IgnorePatterns) {
			return true
		}

		key := normalizeURL(link)
		if seen[key] {
			return true
		}
		seen[key] = true

		links = append(links, model.CardLink{Name: name, URL: link})
		return true
	})

	return links, nil
}

// resolveURL resolves href against base. Script, mail, phone and bare
// fragment links resolve to "".
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return base.ResolveReference(u).String()
}

// normalizeURL is the deduplication key of a link: fragment dropped,
// scheme and host lowercased, empty path treated as "/".
func normalizeURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// ignored reports whether the path of link matches any pattern.
func ignored(link string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	u, err := url.Parse(link)
	if err != nil {
		return true
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range patterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a URL path matches a glob pattern.
// "/prefix/*" matches everything below prefix, "*.ext" matches by
// extension, and anything else goes through filepath.Match.
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	// Bare globs like "*corporate*" match the last path segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}

// collapseSpaces trims s and folds inner whitespace runs into one space.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
