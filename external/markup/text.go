// Package markup holds goquery helpers shared by the scraped sources.
package markup

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Text returns the text nodes under sel in document order, joined by single
// spaces. Selection.Text concatenates adjacent elements without a separator,
// which glues tokens together on compact markup.
func Text(sel *goquery.Selection) string {
	parts := make([]string, 0, 16)
	sel.Each(func(_ int, s *goquery.Selection) {
		collect(s, &parts)
	})
	return strings.Join(parts, " ")
}

func collect(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "#text":
			*parts = append(*parts, strings.Fields(child.Text())...)
		case "script", "style", "#comment":
		default:
			collect(child, parts)
		}
	})
}
