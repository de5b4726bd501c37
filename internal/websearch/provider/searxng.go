package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

// SearXNGProvider implements the SearXNG JSON API
type SearXNGProvider struct {
	*BaseProvider
}

// NewSearXNGProvider creates a new SearXNG provider
func NewSearXNGProvider(config *types.ProviderConfig, opts ...Option) (Provider, error) {
	return &SearXNGProvider{BaseProvider: NewBaseProvider(config, opts...)}, nil
}

type searxngResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"publishedDate,omitempty"`
	} `json:"results"`
}

// Search executes a search query using the SearXNG API. The instance
// decides how many results it returns; the list is trimmed to MaxResults.
func (p *SearXNGProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()

	params := url.Values{}
	params.Set("q", p.Query(req))
	params.Set("format", "json")
	params.Set("pageno", "1")
	if !req.Raw {
		params.Set("language", "pt-BR")
	}

	apiURL := fmt.Sprintf("%s/search?%s", strings.TrimRight(p.config.APIHost, "/"), params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, p.Error("BAD_REQUEST", "failed to create request", err)
	}
	for k, v := range p.JSONHeaders() {
		httpReq.Header.Set(k, v)
	}
	if p.config.BasicAuthUsername != "" && p.config.BasicAuthPassword != "" {
		httpReq.SetBasicAuth(p.config.BasicAuthUsername, p.config.BasicAuthPassword)
	}

	body, err := p.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var searxngResp searxngResponse
	if err := json.Unmarshal(body, &searxngResp); err != nil {
		return nil, p.Error("DECODE_FAILED", "failed to decode response", fmt.Errorf("%w: %v", types.ErrInvalidResponse, err))
	}

	limit := p.Limit(req, 0)
	results := make([]*types.SearchResult, 0, limit)
	for _, r := range searxngResp.Results {
		if len(results) == limit {
			break
		}
		if r.URL == "" {
			continue
		}
		results = append(results, &types.SearchResult{
			Title:       r.Title,
			URL:         r.URL,
			Snippet:     r.Content,
			PublishedAt: r.PublishedDate,
		})
	}

	return p.Response(req.Query, results, startTime), nil
}
