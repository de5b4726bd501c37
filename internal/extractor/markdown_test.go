package extractor

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMarkdown(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		rawURL      string
		want        bool
	}{
		{"media type", "text/markdown; charset=utf-8", "https://exemplo.com.br/relatorio", true},
		{"legacy media type", "text/x-markdown", "https://exemplo.com.br/relatorio", true},
		{"plain text with extension", "text/plain", "https://raw.exemplo.com.br/README.md", true},
		{"no type with extension", "", "https://exemplo.com.br/dados.markdown", true},
		{"plain text page", "text/plain", "https://exemplo.com.br/dados.txt", false},
		{"html with extension", "text/html", "https://exemplo.com.br/README.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.rawURL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, isMarkdown(tt.contentType, u))
		})
	}
}

func TestRenderMarkdown(t *testing.T) {
	rendered, err := renderMarkdown("# Panorama do setor\n\nO mercado de **cafés especiais** cresceu no Brasil.\n\n| ano | vendas |\n|---|---|\n| 2023 | 10 |\n")
	require.NoError(t, err)
	assert.Contains(t, rendered, "<h1>Panorama do setor</h1>")
	assert.Contains(t, rendered, "<strong>cafés especiais</strong>")
	assert.Contains(t, rendered, "<table>")

	text, err := markupMethod{}.Extract(&Page{HTML: rendered})
	require.NoError(t, err)
	assert.Contains(t, text, "cafés especiais")
	assert.NotContains(t, text, "**")
}
