package extractor

import (
	"strings"

	"github.com/dyatlov/go-opengraph/opengraph"
	"golang.org/x/net/html"
)

// pageTitle prefers og:title and falls back to the first <title> element.
func pageTitle(markup string) string {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(markup)); err == nil {
		if title := strings.TrimSpace(og.Title); title != "" {
			return title
		}
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) != "title" {
				continue
			}
			if z.Next() == html.TextToken {
				return squashSpaces(string(z.Text()))
			}
			return ""
		}
	}
}
