package data

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/market-research-backend/internal/pkg/database"
	"github.com/lk2023060901/market-research-backend/internal/research/biz"
	"github.com/lk2023060901/market-research-backend/internal/research/types"
)

// SessionPO research session row
type SessionPO struct {
	ID               string    `gorm:"type:uuid;primaryKey"`
	Query            string    `gorm:"type:text;not null"`
	Segment          string    `gorm:"size:255;index:idx_research_sessions_segment"`
	CollectionType   string    `gorm:"size:50;not null"`
	Status           string    `gorm:"size:20;not null"`
	TotalResults     int       `gorm:"not null"`
	SourcesExtracted int       `gorm:"not null"`
	QualityScore     float64   `gorm:"not null"`
	ArchiveKey       string    `gorm:"size:255"`
	CreatedAt        time.Time `gorm:"not null;index:idx_research_sessions_created_at"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (SessionPO) TableName() string {
	return "research_sessions"
}

// SessionRepo stores sessions in postgres
type SessionRepo struct {
	db *database.DB
}

// NewSessionRepo creates the session repository
func NewSessionRepo(db *database.DB) biz.SessionRepo {
	return &SessionRepo{db: db}
}

// Create inserts a session row
func (r *SessionRepo) Create(ctx context.Context, s *types.Session) error {
	po := &SessionPO{
		ID:               s.ID,
		Query:            s.Query,
		Segment:          s.Segment,
		CollectionType:   string(s.Type),
		Status:           string(s.Status),
		TotalResults:     s.TotalResults,
		SourcesExtracted: s.SourcesExtracted,
		QualityScore:     s.QualityScore,
		ArchiveKey:       s.ArchiveKey,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return fmt.Errorf("insert session %s: %w", s.ID, err)
	}
	return nil
}

// GetByID loads one session
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*types.Session, error) {
	var po SessionPO
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&po).Error
	if database.IsRecordNotFoundError(err) {
		return nil, biz.ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session %s: %w", id, err)
	}
	return po.toSession(), nil
}

// List returns one page of sessions, newest first, and the total count
func (r *SessionRepo) List(ctx context.Context, page, pageSize int) ([]*types.Session, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&SessionPO{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	var pos []SessionPO
	if err := r.db.WithContext(ctx).Scopes(database.Newest, database.Paginate(page, pageSize)).Find(&pos).Error; err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]*types.Session, len(pos))
	for i := range pos {
		sessions[i] = pos[i].toSession()
	}
	return sessions, total, nil
}

func (po *SessionPO) toSession() *types.Session {
	return &types.Session{
		ID:               po.ID,
		Query:            po.Query,
		Segment:          po.Segment,
		Type:             types.CollectionType(po.CollectionType),
		Status:           types.Status(po.Status),
		TotalResults:     po.TotalResults,
		SourcesExtracted: po.SourcesExtracted,
		QualityScore:     po.QualityScore,
		ArchiveKey:       po.ArchiveKey,
		CreatedAt:        po.CreatedAt,
		UpdatedAt:        po.UpdatedAt,
	}
}
