package service

import "github.com/lk2023060901/market-research-backend/internal/research/types"

// SearchRequest unified search request
type SearchRequest struct {
	Query      string         `json:"query" binding:"required"`
	MaxResults int            `json:"max_results" binding:"omitempty,min=1,max=100"`
	Context    map[string]any `json:"context"`
	SessionID  string         `json:"session_id" binding:"omitempty,max=64"`
}

// ExtractRequest single page extraction request
type ExtractRequest struct {
	URL            string `json:"url" binding:"required"`
	TimeoutSeconds int    `json:"timeout_seconds" binding:"omitempty,min=1,max=120"`
	Refresh        bool   `json:"refresh"` // evict the cached result first
}

// CollectRequest research collection request
type CollectRequest struct {
	Query     string `json:"query" binding:"omitempty,max=500"`
	Segment   string `json:"segment" binding:"omitempty,max=255"`
	Product   string `json:"product" binding:"omitempty,max=255"`
	Audience  string `json:"audience" binding:"omitempty,max=255"`
	Depth     int    `json:"depth" binding:"omitempty,min=0,max=10"`
	SessionID string `json:"session_id" binding:"omitempty,uuid"`
}

// ListSessionsRequest session list query
type ListSessionsRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ListSessionsResponse one page of sessions
type ListSessionsResponse struct {
	Items    []*types.Session `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}
