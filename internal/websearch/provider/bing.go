package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

const bingResultSelector = "li.b_algo"

// BingProvider scrapes the Bing HTML results page
type BingProvider struct {
	*BaseProvider
}

// NewBingProvider creates a new Bing scraping provider
func NewBingProvider(config *types.ProviderConfig, opts ...Option) (Provider, error) {
	return &BingProvider{BaseProvider: NewBaseProvider(config, opts...)}, nil
}

// Search fetches one results page and parses li.b_algo blocks
func (p *BingProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()
	limit := p.Limit(req, 50)

	params := url.Values{}
	params.Set("q", p.Query(req))
	params.Set("count", strconv.Itoa(limit))
	if !req.Raw {
		params.Set("cc", "br")
		params.Set("setlang", "pt-br")
	}

	doc, err := p.fetchDocument(ctx, fmt.Sprintf("%s?%s", p.config.APIHost, params.Encode()))
	if err != nil {
		return nil, err
	}

	blocks := doc.Find(bingResultSelector)
	if blocks.Length() == 0 {
		p.reportSelectorMiss(req.Query, bingResultSelector)
		return p.Response(req.Query, nil, startTime), nil
	}

	results := make([]*types.SearchResult, 0, limit)
	blocks.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(results) == limit {
			return false
		}

		link := s.Find("h2 a").First()
		title := squash(link.Text())
		href, _ := link.Attr("href")
		target, ok := resultURL(href)
		if title == "" || !ok {
			return true
		}

		snippet := s.Find(".b_caption p").First()
		if snippet.Length() == 0 {
			snippet = s.Find("p").First()
		}

		results = append(results, &types.SearchResult{
			Title:   title,
			URL:     target,
			Snippet: squash(snippet.Text()),
		})
		return true
	})

	return p.Response(req.Query, results, startTime), nil
}
