package urlresolver

import (
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func bingWrap(target string) string {
	return "https://www.bing.com/ck/a?!&&p=3f1c9e&ptn=3&u=a1" +
		base64.RawURLEncoding.EncodeToString([]byte(target)) + "&ntb=1"
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "empty", input: "", wantOK: false},
		{name: "whitespace", input: "   ", wantOK: false},
		{name: "plain https", input: "https://g1.globo.com/economia/", want: "https://g1.globo.com/economia/", wantOK: true},
		{name: "trimmed", input: "  https://exame.com/negocios  ", want: "https://exame.com/negocios", wantOK: true},
		{name: "missing scheme", input: "exame.com/negocios", wantOK: false},
		{name: "missing host", input: "https:///path-only", wantOK: false},
		{name: "protocol relative gets https", input: "//example.com/page", want: "https://example.com/page", wantOK: true},
		{name: "bing base64", input: bingWrap("https://example.com/page"), want: "https://example.com/page", wantOK: true},
		{
			name:   "bing percent encoded",
			input:  "https://www.bing.com/ck/a?!&&p=1&u=" + url.QueryEscape("https://example.com/page") + "&ntb=1",
			want:   "https://example.com/page",
			wantOK: true,
		},
		{
			name:   "bing without scheme gets https",
			input:  "https://www.bing.com/ck/a?!&&p=1&u=example.com%2Fpage",
			want:   "https://example.com/page",
			wantOK: true,
		},
		{
			name:   "bing scheme-less separator",
			input:  "https://www.bing.com/ck/a?!&&p=1&u=" + url.QueryEscape("://example.com/page"),
			want:   "https://example.com/page",
			wantOK: true,
		},
		{name: "bing missing target", input: "https://www.bing.com/ck/a?!&&p=1&ntb=1", wantOK: false},
		{
			name:   "duckduckgo protocol relative",
			input:  "//duckduckgo.com/l/?uddg=" + url.QueryEscape("https://www.infomoney.com.br/mercados/") + "&rut=abc",
			want:   "https://www.infomoney.com.br/mercados/",
			wantOK: true,
		},
		{
			name:   "google url wrapper",
			input:  "https://www.google.com.br/url?q=" + url.QueryEscape("https://valor.globo.com/empresas/") + "&sa=U",
			want:   "https://valor.globo.com/empresas/",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips tracking params",
			input: "https://exame.com/negocios/cafe?utm_source=x&utm_medium=y&id=42",
			want:  "https://exame.com/negocios/cafe?id=42",
		},
		{
			name:  "keeps allow-listed keys case-insensitively",
			input: "https://example.com/a?Page=2&slug=cafe&fbclid=zzz",
			want:  "https://example.com/a?Page=2&slug=cafe",
		},
		{
			name:  "drops fragment and empty query",
			input: "https://example.com/a?ref=home#top",
			want:  "https://example.com/a",
		},
		{
			name:  "keeps key order and userinfo when stripping",
			input: "https://user:pw@example.com/a?page=2&utm_source=x&id=1#top",
			want:  "https://user:pw@example.com/a?page=2&id=1",
		},
		{
			name:  "nothing to strip keeps fragment",
			input: "https://example.com/page#section",
			want:  "https://example.com/page#section",
		},
		{
			name:  "unwraps redirect first",
			input: bingWrap("https://example.com/page?gclid=1"),
			want:  "https://example.com/page",
		},
		{
			name:  "unresolvable returned unchanged",
			input: "not a url",
			want:  "not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.input))
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"https://example.com/page",
		"https://example.com/a?b=1&post=9&id=3#frag",
		"https://example.com/caf%C3%A9?slug=x",
		bingWrap("https://example.com/page?article=7"),
	}

	for _, in := range inputs {
		resolved, ok := Resolve(in)
		assert.True(t, ok, in)

		cleaned := Clean(resolved)
		again, ok := Resolve(cleaned)
		assert.True(t, ok)
		assert.Equal(t, cleaned, again)
		assert.Equal(t, cleaned, Clean(cleaned))
	}

	// Cleaning a URL with nothing to strip leaves the resolved form intact.
	for _, in := range []string{
		"https://example.com/page",
		"https://example.com/page#section",
		"https://user:pw@example.com/page",
		"https://example.com/a?page=2&id=1",
		"https://example.com/a?id=3&post=9",
		"//example.com/page",
	} {
		resolved, _ := Resolve(in)
		roundTrip, ok := Resolve(Clean(resolved))
		assert.True(t, ok)
		assert.Equal(t, resolved, roundTrip)
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("https://exame.com/negocios"))
	assert.True(t, IsValid("//valor.globo.com/empresas"))
	assert.False(t, IsValid("valor.globo.com/empresas"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("https://www.bing.com/ck/a?p=1"))
}

func TestIsSafe(t *testing.T) {
	assert.True(t, IsSafe("https://www.estadao.com.br/economia/"))
	assert.False(t, IsSafe(""))
	assert.False(t, IsSafe("javascript:alert(1)"))
	assert.False(t, IsSafe("http://localhost:8080/admin"))
	assert.False(t, IsSafe("http://127.0.0.1/"))
	assert.False(t, IsSafe("mailto:contato@example.com"))
}

func TestHost(t *testing.T) {
	assert.Equal(t, "g1.globo.com", Host("https://G1.globo.com:443/x"))
	assert.Equal(t, "", Host("::bad"))
}
