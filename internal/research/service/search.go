package service

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lk2023060901/market-research-backend/internal/extractor"
	apperrors "github.com/lk2023060901/market-research-backend/internal/pkg/errors"
	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/pkg/response"
	"github.com/lk2023060901/market-research-backend/internal/websearch/manager"
	searchtypes "github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

// SearchManager is the part of the unified search manager exposed over HTTP
type SearchManager interface {
	Search(ctx context.Context, query string, maxResults int, searchCtx map[string]any, sessionID string) *manager.UnifiedSearchResponse
	ProviderStatus() map[searchtypes.ProviderID]manager.ProviderStatus
	ResetProvider(id searchtypes.ProviderID) error
	ResetAll()
}

// PageExtractor extracts one page
type PageExtractor interface {
	Extract(ctx context.Context, rawURL string, timeout time.Duration) *extractor.Result
	Invalidate(ctx context.Context, rawURL string) error
	Stats() extractor.Stats
}

// SearchService search, extraction and provider administration endpoints
type SearchService struct {
	manager   SearchManager
	extractor PageExtractor
	logger    *logger.Logger
}

// NewSearchService creates the search service
func NewSearchService(m SearchManager, ext PageExtractor, log *logger.Logger) *SearchService {
	return &SearchService{
		manager:   m,
		extractor: ext,
		logger:    logger.OrGlobal(log),
	}
}

// Search runs a unified search
func (s *SearchService) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := searchtypes.ValidateQuery(req.Query); err != nil {
		response.HandleError(c, apperrors.NewValidationError("query", err.Error()))
		return
	}

	resp := s.manager.Search(c.Request.Context(), req.Query, req.MaxResults, req.Context, req.SessionID)
	response.Success(c, resp)
}

// Extract extracts the readable text of one URL. Extraction failures are
// reported in the result metadata, not as an HTTP error.
func (s *SearchService) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.Refresh {
		if err := s.extractor.Invalidate(c.Request.Context(), req.URL); err != nil {
			s.logger.WithContext(c.Request.Context()).Warn("extraction cache eviction failed",
				zap.String("url", req.URL),
				zap.Error(err),
			)
		}
	}

	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	result := s.extractor.Extract(c.Request.Context(), req.URL, timeout)
	if !result.Succeeded() {
		s.logger.WithContext(c.Request.Context()).Warn("extraction failed",
			zap.String("url", req.URL),
			zap.String("error", result.Metadata.Error),
		)
	}
	response.Success(c, result)
}

// Extractors lists the configured extraction methods
func (s *SearchService) Extractors(c *gin.Context) {
	response.Success(c, s.extractor.Stats())
}

// Providers returns the status of every registered provider
func (s *SearchService) Providers(c *gin.Context) {
	response.Success(c, s.manager.ProviderStatus())
}

// ResetProvider clears the error count of one provider
func (s *SearchService) ResetProvider(c *gin.Context) {
	id := searchtypes.ProviderID(c.Param("id"))
	if err := s.manager.ResetProvider(id); err != nil {
		if errors.Is(err, searchtypes.ErrProviderNotFound) {
			response.HandleError(c, apperrors.NewProviderNotFound(string(id)))
			return
		}
		response.HandleError(c, err)
		return
	}

	s.logger.WithContext(c.Request.Context()).Info("provider reset", zap.String("provider", string(id)))
	response.Success(c, s.manager.ProviderStatus()[id])
}

// ResetAll re-enables every provider
func (s *SearchService) ResetAll(c *gin.Context) {
	s.manager.ResetAll()
	s.logger.WithContext(c.Request.Context()).Info("all providers reset")
	response.Success(c, s.manager.ProviderStatus())
}
