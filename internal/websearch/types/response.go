package types

// SearchResponse is what a single adapter returns.
type SearchResponse struct {
	Query      string          `json:"query"`
	Results    []*SearchResult `json:"results"`
	TotalCount int             `json:"total_count,omitempty"`
	Took       int64           `json:"took"` // milliseconds
	Provider   ProviderID      `json:"provider"`
}

// SearchResult represents a single search result. Locale flags and the
// priority score are filled in by the unified search manager.
type SearchResult struct {
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	Snippet       string     `json:"snippet"`
	Source        ProviderID `json:"source"`
	PublishedAt   string     `json:"published_at,omitempty"`
	IsBrazilian   bool       `json:"is_brazilian"`
	IsPreferred   bool       `json:"is_preferred"`
	PriorityScore float64    `json:"priority_score"`
}

// Clone returns a shallow copy so enrichment never touches adapter-owned values.
func (r *SearchResult) Clone() *SearchResult {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
