package browser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// reducedHTML is page HTML stripped down to the structure an agent needs
// to pick selectors: semantic tags, ids/classes, form fields, and link
// targets, with scripts and presentation noise removed.
type reducedHTML struct {
	HTML      string
	Title     string
	Truncated bool
}

// reduceHTML parses raw page HTML and re-emits a trimmed version. budget
// caps the amount of text content kept; markup written for structure does
// not count against it.
func reduceHTML(raw string, budget int) (*reducedHTML, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	w := &htmlWriter{budget: budget}
	w.walk(doc)

	return &reducedHTML{
		HTML:      w.out.String(),
		Title:     documentTitle(doc),
		Truncated: w.truncated,
	}, nil
}

type htmlWriter struct {
	out       strings.Builder
	written   int
	budget    int
	truncated bool
}

func (w *htmlWriter) walk(n *html.Node) {
	if w.truncated {
		return
	}

	switch n.Type {
	case html.TextNode:
		w.writeText(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if droppedTags[tag] {
			return
		}
		w.writeElement(n, tag)
		return
	}

	// Document and fragment nodes: descend.
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *htmlWriter) writeText(text string) {
	text = collapseWhitespace(text)
	if text == "" {
		return
	}

	// Budget accounting is in characters, matching the content cap.
	runes := utf8.RuneCountInString(text)
	if w.written+runes > w.budget {
		if remaining := w.budget - w.written; remaining > 0 {
			w.out.WriteString(truncate(text, remaining))
		}
		w.written = w.budget
		w.truncated = true
		return
	}

	w.out.WriteString(text)
	w.written += runes
}

func (w *htmlWriter) writeElement(n *html.Node, tag string) {
	w.out.WriteString("<")
	w.out.WriteString(tag)
	for _, attr := range n.Attr {
		if keepAttribute(tag, strings.ToLower(attr.Key)) {
			fmt.Fprintf(&w.out, ` %s="%s"`, attr.Key, html.EscapeString(attr.Val))
		}
	}
	w.out.WriteString(">")

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
		if w.truncated {
			break
		}
	}

	if !voidTags[tag] {
		w.out.WriteString("</")
		w.out.WriteString(tag)
		w.out.WriteString(">")
	}
}

// droppedTags are removed entirely, subtree included.
var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"embed":    true,
	"object":   true,
	"svg":      true,
}

var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true,
	"embed": true, "hr": true, "img": true, "input": true,
	"link": true, "meta": true, "param": true, "source": true,
	"track": true, "wbr": true,
}

// keepAttribute keeps the attributes that make elements targetable:
// ids, classes, roles, links, and form field names.
func keepAttribute(tag, attr string) bool {
	switch attr {
	case "id", "class", "role", "aria-label":
		return true
	}
	if strings.HasPrefix(attr, "data-") {
		return true
	}

	switch tag {
	case "a":
		return attr == "href"
	case "img":
		return attr == "src" || attr == "alt"
	case "input", "textarea", "select":
		return attr == "name" || attr == "type" || attr == "placeholder" || attr == "value"
	case "button":
		return attr == "type" || attr == "name"
	case "form":
		return attr == "action" || attr == "method"
	}
	return false
}

// documentTitle returns the text of the first <title> element.
func documentTitle(doc *html.Node) string {
	var title string
	var traverse func(*html.Node) bool
	traverse = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if traverse(c) {
				return true
			}
		}
		return false
	}
	traverse(doc)
	return title
}
