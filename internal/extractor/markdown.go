package extractor

import (
	"bytes"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// isMarkdown reports whether a download is a markdown document rather than
// a web page, by media type or by file extension of the final URL.
func isMarkdown(contentType string, u *url.URL) bool {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "text/markdown", "text/x-markdown":
		return true
	case "", "text/plain":
		if u == nil {
			return false
		}
		ext := strings.ToLower(path.Ext(u.Path))
		return ext == ".md" || ext == ".markdown"
	}
	return false
}

// renderMarkdown converts markdown to HTML so it can run through the
// regular page methods.
func renderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return "<html><body><article>" + buf.String() + "</article></body></html>", nil
}
