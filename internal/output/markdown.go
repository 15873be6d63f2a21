package output

import (
	"bytes"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// renderMarkdown renders doc as HTML and converts it with GitHub-flavored tables.
func renderMarkdown(w io.Writer, doc document) error {
	var buf bytes.Buffer
	if err := renderHTML(&buf, doc); err != nil {
		return err
	}

	cleaned, err := cleanHTML(buf.String())
	if err != nil {
		return err
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	mdStr, err := converter.ConvertString(cleaned)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, mdStr+"\n")
	return err
}

// cleanHTML drops the head and every attribute so only structure reaches the
// converter.
func cleanHTML(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	doc.Find("head, style, script").Remove()

	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			if node.Type == html.ElementNode {
				node.Attr = nil
			}
		}
	})

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}
