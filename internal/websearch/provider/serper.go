package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

// SerperProvider implements the Serper Google results API
type SerperProvider struct {
	*BaseProvider
}

// NewSerperProvider creates a new Serper provider
func NewSerperProvider(config *types.ProviderConfig, opts ...Option) (Provider, error) {
	return &SerperProvider{BaseProvider: NewBaseProvider(config, opts...)}, nil
}

type serperRequest struct {
	Q   string `json:"q"`
	GL  string `json:"gl,omitempty"`
	HL  string `json:"hl,omitempty"`
	Num int    `json:"num"`
}

// Search executes a search query using the Serper API
func (p *SerperProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()

	payload := serperRequest{
		Q:   p.Query(req),
		Num: p.Limit(req, 0),
	}
	if !req.Raw {
		payload.GL = "br"
		payload.HL = "pt"
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, p.Error("BAD_REQUEST", "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.APIHost, bytes.NewReader(reqBody))
	if err != nil {
		return nil, p.Error("BAD_REQUEST", "failed to create request", err)
	}
	for k, v := range p.JSONHeaders() {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("X-API-KEY", p.GetAPIKey())

	body, err := p.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, p.Error("DECODE_FAILED", "response is not JSON", types.ErrInvalidResponse)
	}

	var results []*types.SearchResult
	gjson.GetBytes(body, "organic").ForEach(func(_, item gjson.Result) bool {
		link := item.Get("link").String()
		title := item.Get("title").String()
		if link == "" || title == "" {
			return true
		}
		results = append(results, &types.SearchResult{
			Title:       title,
			URL:         link,
			Snippet:     item.Get("snippet").String(),
			PublishedAt: item.Get("date").String(),
		})
		return true
	})

	return p.Response(req.Query, results, startTime), nil
}
