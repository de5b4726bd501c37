package extractor

import (
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/k3a/html2text"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Page is a downloaded HTML document
type Page struct {
	URL  *url.URL
	HTML string
}

// HTMLMethod extracts the main text of a page
type HTMLMethod interface {
	Name() string
	Extract(page *Page) (string, error)
}

// DefaultHTMLMethods returns the HTML chain in the order it is tried.
func DefaultHTMLMethods() []HTMLMethod {
	return []HTMLMethod{
		trafilaturaMethod{},
		readabilityMethod{},
		articleMethod{minParagraph: 25},
		markupMethod{},
	}
}

var errNoArticle = errors.New("no article container found")

// trafilaturaMethod removes boilerplate and keeps the main content.
type trafilaturaMethod struct{}

func (trafilaturaMethod) Name() string { return "trafilatura" }

func (trafilaturaMethod) Extract(page *Page) (string, error) {
	res, err := trafilatura.Extract(strings.NewReader(page.HTML), trafilatura.Options{
		OriginalURL: page.URL,
	})
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", nil
	}
	return res.ContentText, nil
}

// readabilityMethod is the reader-mode parser.
type readabilityMethod struct{}

func (readabilityMethod) Name() string { return "readability" }

func (readabilityMethod) Extract(page *Page) (string, error) {
	article, err := readability.FromReader(strings.NewReader(page.HTML), page.URL)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}

// articleMethod scores each container by the paragraph text it directly
// holds and returns the paragraphs of the best one.
type articleMethod struct {
	minParagraph int
}

func (articleMethod) Name() string { return "article" }

func (m articleMethod) Extract(page *Page) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, nav, header, footer, aside, form").Remove()

	scores := make(map[*html.Node]int)
	var order []*html.Node
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		n := utf8.RuneCountInString(strings.TrimSpace(s.Text()))
		if n < m.minParagraph {
			return
		}
		parent := s.Parent()
		if parent.Length() == 0 {
			return
		}
		node := parent.Get(0)
		if _, seen := scores[node]; !seen {
			order = append(order, node)
		}
		scores[node] += n
	})

	var best *html.Node
	bestScore := 0
	for _, node := range order {
		if scores[node] > bestScore {
			best, bestScore = node, scores[node]
		}
	}
	if best == nil {
		return "", errNoArticle
	}

	var paragraphs []string
	doc.FindNodes(best).Children().Filter("p, h2, h3, ul, ol, blockquote").Each(func(_ int, s *goquery.Selection) {
		if text := squashSpaces(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n\n"), nil
}

// markupMethod converts the whole markup to text.
type markupMethod struct{}

func (markupMethod) Name() string { return "markup" }

func (markupMethod) Extract(page *Page) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()

	cleaned, err := doc.Html()
	if err != nil {
		return "", err
	}
	return compactLines(html2text.HTML2Text(cleaned)), nil
}

// compactLines trims every line and drops the empty ones.
func compactLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func squashSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
