package data

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"

	"github.com/lk2023060901/market-research-backend/internal/pkg/database"
	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/research/biz"
	"github.com/lk2023060901/market-research-backend/internal/research/types"
)

var sessionColumns = []string{
	"id", "query", "segment", "collection_type", "status", "total_results",
	"sources_extracted", "quality_score", "archive_key", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (biz.SessionRepo, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := database.DefaultConfig()
	cfg.PrepareStmt = false
	db, err := database.Open(postgres.New(postgres.Config{Conn: sqlDB}), cfg, logger.NewNop())
	require.NoError(t, err)
	return NewSessionRepo(db), mock
}

func TestSessionRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "research_sessions"`)).
		WithArgs("s1", "cafeteria", "alimentação", "real_data_collection", "completed",
			25, 3, 0.7, "collections/s1.json", created, created.Add(time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &types.Session{
		ID:               "s1",
		Query:            "cafeteria",
		Segment:          "alimentação",
		Type:             types.CollectionRealData,
		Status:           types.StatusCompleted,
		TotalResults:     25,
		SourcesExtracted: 3,
		QualityScore:     0.7,
		ArchiveKey:       "collections/s1.json",
		CreatedAt:        created,
		UpdatedAt:        created.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepoCreateError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "research_sessions"`)).
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &types.Session{ID: "s1", CreatedAt: time.Now(), UpdatedAt: time.Now()})
	assert.ErrorContains(t, err, "insert session s1")
	assert.ErrorContains(t, err, "connection reset")
}

func TestSessionRepoGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "research_sessions" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(sessionColumns).
			AddRow("s1", "cafeteria", "alimentação", "emergency_fallback", "fallback", 0, 0, 0.1, "", created, created))

	s, err := repo.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, types.CollectionEmergency, s.Type)
	assert.Equal(t, types.StatusFallback, s.Status)
	assert.InDelta(t, 0.1, s.QualityScore, 1e-9)
	assert.Equal(t, created, s.CreatedAt)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "research_sessions" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(sessionColumns))
	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, biz.ErrCollectionNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepoList(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "research_sessions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "research_sessions" ORDER BY created_at DESC LIMIT $1 OFFSET $2`)).
		WillReturnRows(sqlmock.NewRows(sessionColumns).
			AddRow("s2", "pet shop", "", "real_data_collection", "completed", 30, 8, 0.9, "collections/s2.json", created, created))

	sessions, total, err := repo.List(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 12, total)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s2", sessions[0].ID)
	assert.Equal(t, 8, sessions[0].SourcesExtracted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
