package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

// googleMaxResults is the Custom Search API ceiling for num.
const googleMaxResults = 10

// GoogleProvider implements the Google Custom Search JSON API
type GoogleProvider struct {
	*BaseProvider
}

// NewGoogleProvider creates a new Google provider
func NewGoogleProvider(config *types.ProviderConfig, opts ...Option) (Provider, error) {
	return &GoogleProvider{BaseProvider: NewBaseProvider(config, opts...)}, nil
}

// Search executes a search query using the Custom Search API
func (p *GoogleProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()
	query := p.Query(req)

	params := url.Values{}
	params.Set("key", p.GetAPIKey())
	params.Set("cx", p.config.EngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(p.Limit(req, googleMaxResults)))
	if !req.Raw {
		params.Set("lr", "lang_pt")
		params.Set("gl", "br")
		params.Set("dateRestrict", "m12")
	}
	params.Set("safe", "off")

	apiURL := fmt.Sprintf("%s?%s", p.config.APIHost, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, p.Error("BAD_REQUEST", "failed to create request", err)
	}
	for k, v := range p.JSONHeaders() {
		httpReq.Header.Set(k, v)
	}

	body, err := p.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, p.Error("DECODE_FAILED", "response is not JSON", types.ErrInvalidResponse)
	}

	var results []*types.SearchResult
	gjson.GetBytes(body, "items").ForEach(func(_, item gjson.Result) bool {
		link := item.Get("link").String()
		title := item.Get("title").String()
		if link == "" || title == "" {
			return true
		}
		results = append(results, &types.SearchResult{
			Title:       title,
			URL:         link,
			Snippet:     item.Get("snippet").String(),
			PublishedAt: item.Get("pagemap.metatags.0.article:published_time").String(),
		})
		return true
	})

	return p.Response(req.Query, results, startTime), nil
}
