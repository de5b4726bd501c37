package service

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "github.com/lk2023060901/market-research-backend/internal/pkg/errors"
	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/pkg/response"
	"github.com/lk2023060901/market-research-backend/internal/research/biz"
	"github.com/lk2023060901/market-research-backend/internal/research/types"
)

// ResearchService research collection endpoints
type ResearchService struct {
	uc     *biz.CollectorUseCase
	logger *logger.Logger
}

// NewResearchService creates the research service
func NewResearchService(uc *biz.CollectorUseCase, log *logger.Logger) *ResearchService {
	return &ResearchService{
		uc:     uc,
		logger: logger.OrGlobal(log),
	}
}

// Collect runs a full research collection
func (s *ResearchService) Collect(c *gin.Context) {
	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	collection, err := s.uc.Collect(c.Request.Context(), &biz.CollectRequest{
		Query: req.Query,
		Context: types.MarketContext{
			Segment:  req.Segment,
			Product:  req.Product,
			Audience: req.Audience,
		},
		Depth:     req.Depth,
		SessionID: req.SessionID,
	})
	if err != nil {
		s.handleError(c, err, req.SessionID)
		return
	}

	response.Success(c, collection)
}

// Get returns a stored collection
func (s *ResearchService) Get(c *gin.Context) {
	id := c.Param("id")

	collection, err := s.uc.Get(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err, id)
		return
	}

	response.Success(c, collection)
}

// List pages through stored sessions
func (s *ResearchService) List(c *gin.Context) {
	var req ListSessionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	sessions, total, err := s.uc.List(c.Request.Context(), req.Page, req.PageSize)
	if err != nil {
		s.handleError(c, err, "")
		return
	}

	response.Success(c, &ListSessionsResponse{
		Items:    sessions,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
}

func (s *ResearchService) handleError(c *gin.Context, err error, id string) {
	switch {
	case errors.Is(err, biz.ErrQueryRequired):
		response.ErrorWithCode(c, apperrors.ErrResearchInvalidInput, err.Error())
	case errors.Is(err, biz.ErrCollectionNotFound):
		response.HandleError(c, apperrors.NewResearchNotFound(id))
	case errors.Is(err, biz.ErrStorageUnavailable):
		response.ErrorWithCode(c, apperrors.ErrServiceUnavail, err.Error())
	default:
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrResearchStorageFailed))
	}
}
