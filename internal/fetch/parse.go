package fetch

import (
	"io"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// TruncationMarker is appended to text cut at the character limit.
const TruncationMarker = "\n[...truncated...]"

// boilerplate lists elements that never carry article text.
const boilerplate = "script, style, nav, footer, header, aside, form, noscript, iframe, svg, template"

// Page is the readable content of a fetched URL.
type Page struct {
	// URL is the address that was requested.
	URL string
	// FinalURL is the address after redirects.
	FinalURL string
	// StatusCode is the HTTP status of the final response (0 when rendered).
	StatusCode int
	// ContentType is the response media type.
	ContentType string
	Title       string
	Description string
	// Text is the readable body text with whitespace collapsed.
	Text string
	// Truncated reports whether Text was cut to the character limit.
	Truncated bool
	// Rendered reports whether the page went through a headless browser.
	Rendered bool
}

// Content returns the page as a single block for the model: title,
// description and text separated by blank lines.
func (p *Page) Content() string {
	parts := make([]string, 0, 3)
	if p.Title != "" {
		parts = append(parts, "Title: "+p.Title)
	}
	if p.Description != "" && !strings.Contains(p.Text, p.Description) {
		parts = append(parts, p.Description)
	}
	if p.Text != "" {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// ParseHTML extracts the title, description and readable text of an HTML
// document. r must yield UTF-8.
func ParseHTML(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	page := &Page{
		Title:       pageTitle(doc),
		Description: metaContent(doc, "description", "og:description", "twitter:description"),
	}

	doc.Find(boilerplate).Remove()

	root := doc.Find("article")
	if strings.TrimSpace(root.Text()) == "" {
		root = doc.Find("main, [role=main]")
	}
	if strings.TrimSpace(root.Text()) == "" {
		root = doc.Find("body")
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b strings.Builder
	for _, n := range root.Nodes {
		writeText(&b, n)
	}
	page.Text = CollapseWhitespace(b.String())

	return page, nil
}

func pageTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return CollapseWhitespace(t)
	}
	if t := metaContent(doc, "og:title", "twitter:title"); t != "" {
		return t
	}
	return CollapseWhitespace(doc.Find("h1").First().Text())
}

// metaContent returns the content of the first meta tag whose name or
// property matches one of keys.
func metaContent(doc *goquery.Document, keys ...string) string {
	for _, key := range keys {
		sel := doc.Find(`meta[name="` + key + `"], meta[property="` + key + `"]`).First()
		if v, ok := sel.Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// blockElements start a new line in the extracted text.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "section": true, "article": true,
	"figcaption": true, "dd": true, "dt": true, "table": true, "ul": true, "ol": true,
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		// Line breaks inside a text node are not line breaks on screen.
		b.WriteString(strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return ' '
			}
			return r
		}, n.Data))
		return
	case html.ElementNode:
		if blockElements[n.Data] {
			b.WriteString("\n")
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}

	if n.Type == html.ElementNode && blockElements[n.Data] {
		b.WriteString("\n")
	}
}

// CollapseWhitespace trims every line, collapses runs of spaces inside a
// line and drops empty lines.
func CollapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.FieldsFunc(line, unicode.IsSpace), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Truncate cuts s to at most maxChars runes and appends TruncationMarker.
// A non-positive maxChars disables truncation.
func Truncate(s string, maxChars int) (string, bool) {
	if maxChars <= 0 {
		return s, false
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s, false
	}
	return strings.TrimRightFunc(string(runes[:maxChars]), unicode.IsSpace) + TruncationMarker, true
}
