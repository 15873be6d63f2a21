package portal

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Blockquote: true, atom.Center: true, atom.Div: true,
	atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Li: true, atom.Ol: true, atom.P: true,
	atom.Table: true, atom.Tbody: true, atom.Tr: true, atom.Ul: true,
}

// innerText approximates the browser's innerText: whitespace collapses, <br>
// is a hard line break and block elements start a new line.
func innerText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}

	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapse(n.Data))
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Br:
			b.WriteByte('\n')
			return
		case atom.Script, atom.Style, atom.Noscript:
			return
		}
		block := blockElements[n.DataAtom]
		if block {
			softBreak(b)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeText(b, c)
		}
		if block {
			softBreak(b)
		}
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeText(b, c)
		}
	}
}

// softBreak ends the current line unless it is already empty.
func softBreak(b *strings.Builder) {
	s := b.String()
	if s == "" || strings.HasSuffix(strings.TrimRight(s, " "), "\n") {
		return
	}
	b.WriteByte('\n')
}

// collapse folds whitespace runs (source newlines included) into one space,
// keeping a single leading/trailing space so adjacent inline text stays apart.
func collapse(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
