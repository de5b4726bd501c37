package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

// TavilyProvider implements the Tavily search API
type TavilyProvider struct {
	*BaseProvider
}

// NewTavilyProvider creates a new Tavily provider
func NewTavilyProvider(config *types.ProviderConfig, opts ...Option) (Provider, error) {
	return &TavilyProvider{BaseProvider: NewBaseProvider(config, opts...)}, nil
}

type tavilyRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
	Country     string `json:"country,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float32 `json:"score"`
		PublishedDate string  `json:"published_date,omitempty"`
	} `json:"results"`
}

// Search executes a search query using the Tavily API
func (p *TavilyProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()

	payload := tavilyRequest{
		Query:       p.Query(req),
		SearchDepth: "basic",
		MaxResults:  p.Limit(req, 20),
	}
	if !req.Raw {
		payload.Country = "brazil"
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, p.Error("BAD_REQUEST", "failed to marshal request", err)
	}

	apiURL := fmt.Sprintf("%s/search", strings.TrimRight(p.config.APIHost, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, p.Error("BAD_REQUEST", "failed to create request", err)
	}
	for k, v := range p.JSONHeaders() {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.GetAPIKey())

	body, err := p.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var tavilyResp tavilyResponse
	if err := json.Unmarshal(body, &tavilyResp); err != nil {
		return nil, p.Error("DECODE_FAILED", "failed to decode response", fmt.Errorf("%w: %v", types.ErrInvalidResponse, err))
	}

	results := make([]*types.SearchResult, 0, len(tavilyResp.Results))
	for _, r := range tavilyResp.Results {
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
