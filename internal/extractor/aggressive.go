package extractor

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// AggressiveName is reported when the last-resort pass wins
const AggressiveName = "aggressive"

var contentSelectors = []string{
	"article", ".content", ".post", ".entry", "#content",
	".main", ".article-body", ".post-content", "main",
}

// aggressiveText strips page chrome and returns the text of the first
// content container longer than minContainer runes, or else the whole
// document text.
func aggressiveText(markup string, minContainer int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, nav, header, footer, aside").Remove()

	for _, selector := range contentSelectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		parts := make([]string, 0, sel.Length())
		sel.Each(func(_ int, s *goquery.Selection) {
			parts = append(parts, strings.TrimSpace(s.Text()))
		})
		text := strings.Join(parts, " ")
		if utf8.RuneCountInString(text) > minContainer {
			return text, nil
		}
	}

	return compactLines(doc.Text()), nil
}
