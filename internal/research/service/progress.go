package service

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lk2023060901/market-research-backend/internal/pkg/response"
	"github.com/lk2023060901/market-research-backend/internal/pkg/sse"
	"github.com/lk2023060901/market-research-backend/internal/research/biz"
)

// ProgressService streams collection stages as server-sent events
type ProgressService struct {
	hub       *sse.Hub
	heartbeat time.Duration
}

// NewProgressService creates the progress stream service
func NewProgressService(hub *sse.Hub, heartbeat time.Duration) *ProgressService {
	return &ProgressService{hub: hub, heartbeat: heartbeat}
}

// Events streams the stages of session :id until it finishes. Clients
// subscribe before posting a collection with the same session_id.
func (s *ProgressService) Events(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(c, "session id must be a UUID")
		return
	}

	sse.Stream(c, s.hub, sse.NewClient(id, 0), s.heartbeat, func(e sse.Event) bool {
		return e.Type == biz.StageFinished
	})
}
