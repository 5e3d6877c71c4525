package fetcher

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// nonVisibleSelectors lists elements whose text never renders.
const nonVisibleSelectors = "script, style, noscript, template, head > meta, head > link"

// inlineElements do not break words when their text is joined with
// surrounding text. Everything else is treated as a block boundary.
var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "cite": true,
	"code": true, "data": true, "em": true, "font": true, "i": true, "kbd": true,
	"label": true, "mark": true, "q": true, "s": true, "samp": true, "small": true,
	"span": true, "strong": true, "sub": true, "sup": true, "time": true, "u": true,
	"var": true,
}

// ExtractText parses an HTML document and returns its visible text with
// whitespace collapsed to single spaces. Invalid UTF-8 is dropped.
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(nonVisibleSelectors).Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		writeText(&b, n)
	}
	text := strings.ToValidUTF8(b.String(), "")
	return strings.Join(strings.Fields(text), " "), nil
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}

	block := n.Type == html.ElementNode && !inlineElements[n.Data]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte(' ')
	}
}
