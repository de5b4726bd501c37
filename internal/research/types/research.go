package types

import (
	"time"

	searchtypes "github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

// CollectionType tells a full collection apart from the fallback produced when search yields nothing
type CollectionType string

const (
	CollectionRealData  CollectionType = "real_data_collection"
	CollectionEmergency CollectionType = "emergency_fallback"
)

// Status of a research session
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFallback  Status = "fallback"
)

// MarketContext describes the business being researched
type MarketContext struct {
	Segment  string `json:"segment,omitempty"`
	Product  string `json:"product,omitempty"`
	Audience string `json:"audience,omitempty"`
}

// Map renders the context for the search manager
func (c MarketContext) Map() map[string]any {
	m := make(map[string]any, 3)
	if c.Segment != "" {
		m["segment"] = c.Segment
	}
	if c.Product != "" {
		m["product"] = c.Product
	}
	if c.Audience != "" {
		m["audience"] = c.Audience
	}
	return m
}

// SearchSummary aggregates the main and related searches
type SearchSummary struct {
	MainQuery      string                      `json:"main_query"`
	RelatedQueries []string                    `json:"related_queries"`
	TotalResults   int                         `json:"total_results"`
	Results        []*searchtypes.SearchResult `json:"results"`
}

// Source is one page whose content survived extraction
type Source struct {
	URL           string                 `json:"url"`
	Title         string                 `json:"title"`
	Content       string                 `json:"content"`
	ContentLength int                    `json:"content_length"`
	Provider      searchtypes.ProviderID `json:"source"`
	ExtractorUsed string                 `json:"extractor_used"`
}

// ExtractionSummary counts extraction outcomes
type ExtractionSummary struct {
	Attempted   int     `json:"total_attempted"`
	Succeeded   int     `json:"successful_extractions"`
	Failed      int     `json:"failed_extractions"`
	SuccessRate float64 `json:"success_rate"` // percent
	TotalChars  int     `json:"total_content_chars"`
}

// Analysis is the LLM reading of the extracted corpus
type Analysis struct {
	Text            string `json:"ai_analysis"`
	SourcesAnalyzed int    `json:"sources_analyzed"`
	CorpusTokens    int    `json:"corpus_tokens"`
	Error           string `json:"error,omitempty"`
}

// Collection is the full output of one research run
type Collection struct {
	ID           string            `json:"id"`
	Query        string            `json:"query"`
	Context      MarketContext     `json:"context"`
	Type         CollectionType    `json:"collection_type"`
	Status       Status            `json:"status"`
	Search       SearchSummary     `json:"web_search_data"`
	Sources      []*Source         `json:"sources"`
	Extraction   ExtractionSummary `json:"content_extraction_data"`
	Analysis     Analysis          `json:"intelligent_analysis"`
	QualityScore float64           `json:"data_quality_score"`
	ArchiveKey   string            `json:"archive_key,omitempty"`
	Duration     float64           `json:"duration_seconds"`
	CreatedAt    time.Time         `json:"created_at"`
	CompletedAt  time.Time         `json:"completed_at"`
}

// Session is the persisted summary row of a collection
type Session struct {
	ID               string         `json:"id"`
	Query            string         `json:"query"`
	Segment          string         `json:"segment"`
	Type             CollectionType `json:"collection_type"`
	Status           Status         `json:"status"`
	TotalResults     int            `json:"total_results"`
	SourcesExtracted int            `json:"sources_extracted"`
	QualityScore     float64        `json:"data_quality_score"`
	ArchiveKey       string         `json:"archive_key"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// SessionFromCollection derives the summary row of c
func SessionFromCollection(c *Collection) *Session {
	return &Session{
		ID:               c.ID,
		Query:            c.Query,
		Segment:          c.Context.Segment,
		Type:             c.Type,
		Status:           c.Status,
		TotalResults:     c.Search.TotalResults,
		SourcesExtracted: len(c.Sources),
		QualityScore:     c.QualityScore,
		ArchiveKey:       c.ArchiveKey,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.CompletedAt,
	}
}
