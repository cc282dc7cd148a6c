package extract

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// skippedElements never contribute visible text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"iframe":   true,
}

// blockElements start a new line in the extracted text, like a browser's
// innerText does.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "details": true, "div": true, "dl": true,
	"dt": true, "fieldset": true, "figcaption": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "summary": true, "table": true,
	"tr": true, "ul": true,
}

// Parser reduces an HTML document to what a reader sees: its title, its
// visible text and its links. It is the text source of the static engine.
type Parser struct {
	// baseURL resolves relative links.
	baseURL *url.URL
}

// ParseResult contains the information extracted from a page.
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Text is the normalised visible body text.
	Text string

	// Links contains resolved anchor hrefs in document order.
	Links []string
}

// NewParser creates a new HTML parser with the given base URL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content in a single pass over the DOM.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links: make([]string, 0),
	}

	var text strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if n.Data == "title" {
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					result.Title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
			if skippedElements[n.Data] || hidden(n) {
				return
			}
			if n.Data == "a" {
				if link := resolveURL(p.baseURL, getAttr(n, "href")); link != "" {
					result.Links = append(result.Links, link)
				}
			}
			if blockElements[n.Data] {
				text.WriteString("\n")
			}
		case html.TextNode:
			text.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] {
			text.WriteString("\n")
		}
	}

	walk(doc)

	result.Text = NormalizeText(text.String())
	return result, nil
}

// hidden reports whether an element is explicitly hidden in markup.
func hidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if a.Val == "true" {
				return true
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

// getAttr returns the value of the specified attribute.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
