package draft

import (
	"html"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	xhtml "golang.org/x/net/html"
)

// plainText flattens rendered HTML into the single-line plain description
// BookStack stores next to description_html.
func plainText(s string) string {
	if s == "" {
		return ""
	}

	doc, err := xhtml.Parse(strings.NewReader(s))
	if err != nil {
		return plainTextFallback(s)
	}

	var buf strings.Builder
	extractText(doc, &buf)

	return strings.TrimSpace(collapseWhitespace(buf.String()))
}

// extractText recursively collects text nodes, separating block elements with spaces.
func extractText(n *xhtml.Node, buf *strings.Builder) {
	if n.Type == xhtml.TextNode {
		buf.WriteString(n.Data)
	}

	block := n.Type == xhtml.ElementNode && isBlock(n.Data)
	if block || (n.Type == xhtml.ElementNode && n.Data == "br") {
		buf.WriteString(" ")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, buf)
	}

	if block {
		buf.WriteString(" ")
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "ul", "ol", "blockquote", "pre", "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

func plainTextFallback(s string) string {
	s = htmlTagRegex.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(collapseWhitespace(s))
}

// collapseWhitespace joins words with single spaces, treating non-breaking
// spaces like any other whitespace.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// htmlToMarkdown converts a page body. ok is false when conversion fails or
// yields nothing.
func htmlToMarkdown(s string) (string, bool) {
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return "", false
	}
	md = strings.TrimSpace(md)
	return md, md != ""
}
