package provider

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	webhttp "github.com/lk2023060901/market-research-backend/internal/websearch/http"
	"github.com/lk2023060901/market-research-backend/internal/websearch/urlresolver"
)

// fetchDocument GETs a results page with browser headers and parses it.
func (b *BaseProvider) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, b.Error("BAD_REQUEST", "failed to create request", err)
	}
	webhttp.ApplyBrowserHeaders(httpReq)

	body, err := b.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, b.Error("DECODE_FAILED", "failed to parse results page", err)
	}
	return doc, nil
}

// reportSelectorMiss is called when a page was fetched but no result block
// matched. Usually the engine changed its markup.
func (b *BaseProvider) reportSelectorMiss(query, selector string) {
	b.metrics.SelectorMiss(string(b.config.ID))
	b.logger.Warn("no result blocks matched",
		zap.String("query", query),
		zap.String("selector", selector),
	)
}

// resultURL unwraps click-tracking links and keeps only http(s) targets.
func resultURL(href string) (string, bool) {
	resolved, ok := urlresolver.Resolve(href)
	if !ok || !strings.HasPrefix(resolved, "http") {
		return "", false
	}
	return resolved, true
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
