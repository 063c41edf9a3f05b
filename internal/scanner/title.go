package scanner

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxTitleLen = 120

// pageTitle extracts the collapsed <title> text of an HTML body.
func pageTitle(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen])
	}
	return title
}
