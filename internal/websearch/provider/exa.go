package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

// ExaProvider implements the Exa search API
type ExaProvider struct {
	*BaseProvider
}

// NewExaProvider creates a new Exa provider
func NewExaProvider(config *types.ProviderConfig, opts ...Option) (Provider, error) {
	return &ExaProvider{BaseProvider: NewBaseProvider(config, opts...)}, nil
}

type exaRequest struct {
	Query              string         `json:"query"`
	NumResults         int            `json:"numResults,omitempty"`
	StartPublishedDate string         `json:"startPublishedDate,omitempty"`
	Type               string         `json:"type,omitempty"` // "neural", "keyword", or "auto"
	Contents           map[string]any `json:"contents,omitempty"`
}

// Search executes a search query using the Exa API
func (p *ExaProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()

	payload := exaRequest{
		Query:      p.Query(req),
		NumResults: p.Limit(req, 0),
		Type:       "auto",
		Contents: map[string]any{
			"highlights": true,
		},
	}
	if !req.Raw {
		payload.StartPublishedDate = p.now().AddDate(-1, 0, 0).UTC().Format("2006-01-02T15:04:05.000Z")
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
	httpReq.Header.Set("x-api-key", p.GetAPIKey())

	body, err := p.DoRequest(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, p.Error("DECODE_FAILED", "response is not JSON", types.ErrInvalidResponse)
	}

	var results []*types.SearchResult
	gjson.GetBytes(body, "results").ForEach(func(_, item gjson.Result) bool {
		link := item.Get("url").String()
		if link == "" {
			return true
		}

		// Highlights are short and on-topic; fall back to the page text.
		var snippet string
		if hl := item.Get("highlights"); hl.IsArray() && len(hl.Array()) > 0 {
			parts := make([]string, 0, len(hl.Array()))
			for _, h := range hl.Array() {
				parts = append(parts, strings.TrimSpace(h.String()))
			}
			snippet = strings.Join(parts, " ")
		} else {
			snippet = item.Get("text").String()
		}

		results = append(results, &types.SearchResult{
			Title:       item.Get("title").String(),
			URL:         link,
			Snippet:     snippet,
			PublishedAt: item.Get("publishedDate").String(),
		})
		return true
	})

	return p.Response(req.Query, results, startTime), nil
}
