package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

const duckDuckGoResultSelector = "div.result"

// DuckDuckGoProvider scrapes the DuckDuckGo HTML-only endpoint
type DuckDuckGoProvider struct {
	*BaseProvider
}

// NewDuckDuckGoProvider creates a new DuckDuckGo scraping provider
func NewDuckDuckGoProvider(config *types.ProviderConfig, opts ...Option) (Provider, error) {
	return &DuckDuckGoProvider{BaseProvider: NewBaseProvider(config, opts...)}, nil
}

// Search fetches one results page and parses div.result blocks. Result
// links are /l/?uddg= redirects and are unwrapped before use.
func (p *DuckDuckGoProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()
	limit := p.Limit(req, 30)

	params := url.Values{}
	params.Set("q", p.Query(req))
	if !req.Raw {
		params.Set("kl", "br-pt")
	}

	doc, err := p.fetchDocument(ctx, fmt.Sprintf("%s?%s", p.config.APIHost, params.Encode()))
	if err != nil {
		return nil, err
	}

	blocks := doc.Find(duckDuckGoResultSelector)
	if blocks.Length() == 0 {
		p.reportSelectorMiss(req.Query, duckDuckGoResultSelector)
		return p.Response(req.Query, nil, startTime), nil
	}

	results := make([]*types.SearchResult, 0, limit)
	blocks.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(results) == limit {
			return false
		}
		if s.HasClass("result--ad") {
			return true
		}

		link := s.Find("a.result__a").First()
		title := squash(link.Text())
		href, _ := link.Attr("href")
		target, ok := resultURL(href)
		if title == "" || !ok {
			return true
		}

		results = append(results, &types.SearchResult{
			Title:   title,
			URL:     target,
			Snippet: squash(s.Find(".result__snippet").First().Text()),
		})
		return true
	})

	return p.Response(req.Query, results, startTime), nil
}
