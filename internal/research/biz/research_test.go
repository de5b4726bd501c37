package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/market-research-backend/internal/extractor"
	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/research/types"
	"github.com/lk2023060901/market-research-backend/internal/websearch/manager"
	searchtypes "github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

type searchCall struct {
	query      string
	maxResults int
	sessionID  string
}

type fakeSearcher struct {
	mu      sync.Mutex
	calls   []searchCall
	results map[string][]string
}

func (f *fakeSearcher) Search(_ context.Context, query string, maxResults int, _ map[string]any, sessionID string) *manager.UnifiedSearchResponse {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{query: query, maxResults: maxResults, sessionID: sessionID})
	f.mu.Unlock()

	resp := &manager.UnifiedSearchResponse{Query: query}
	for _, u := range f.results[query] {
		resp.Results = append(resp.Results, &searchtypes.SearchResult{
			Title:  "Resultado " + u,
			URL:    u,
			Source: searchtypes.ProviderSerper,
		})
	}
	return resp
}

type fakeExtractor struct {
	content map[string]string
	urls    []string
}

func (f *fakeExtractor) ExtractBatch(_ context.Context, urls []string, _ time.Duration) []*extractor.Result {
	f.urls = append(f.urls, urls...)
	out := make([]*extractor.Result, len(urls))
	for i, u := range urls {
		text, ok := f.content[u]
		if !ok {
			out[i] = &extractor.Result{Metadata: extractor.Metadata{URL: u, Error: extractor.ErrAllFailed}}
			continue
		}
		out[i] = &extractor.Result{
			Content:  text,
			Metadata: extractor.Metadata{URL: u, ExtractorUsed: "trafilatura", ContentLength: len([]rune(text))},
		}
	}
	return out
}

type fakeGenerator struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

type fakeRepo struct {
	mu       sync.Mutex
	sessions map[string]*types.Session
	err      error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]*types.Session)}
}

func (r *fakeRepo) Create(_ context.Context, s *types.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*types.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	return s, nil
}

func (r *fakeRepo) List(_ context.Context, _, _ int) ([]*types.Session, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

type fakeArchive struct {
	mu      sync.Mutex
	objects map[string]*types.Collection
}

func (a *fakeArchive) Save(_ context.Context, key string, c *types.Collection) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = c
	return nil
}

func (a *fakeArchive) Load(_ context.Context, key string) (*types.Collection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return c, nil
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.RelatedDelay = 0
	cfg.ExtractDelay = 0
	return cfg
}

func longText(word string) string {
	return strings.Repeat(word+" ", 60)
}

func urls(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://%s.com.br/%d", prefix, i)
	}
	return out
}

func TestRelatedQueries(t *testing.T) {
	tests := []struct {
		name  string
		query string
		mc    types.MarketContext
		want  []string
	}{
		{
			name:  "generic only",
			query: "cafeteria",
			want: []string{
				"cafeteria estatísticas Brasil 2024",
				"cafeteria pesquisa mercado dados",
				"cafeteria análise competitiva",
				"cafeteria oportunidades investimento",
				"cafeteria tendências futuro",
			},
		},
		{
			name:  "segment first",
			query: "cafeteria",
			mc:    types.MarketContext{Segment: "alimentação"},
			want: []string{
				"alimentação mercado brasileiro tendências 2024",
				"alimentação oportunidades Brasil",
				"cafeteria estatísticas Brasil 2024",
				"cafeteria pesquisa mercado dados",
				"cafeteria análise competitiva",
				"cafeteria oportunidades investimento",
				"cafeteria tendências futuro",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelatedQueries(tt.query, tt.mc))
		})
	}

	full := RelatedQueries("q", types.MarketContext{Segment: "s", Product: "p", Audience: "a"})
	assert.Len(t, full, 10)
	assert.Equal(t, "a pesquisa mercado dados", full[5])
	assert.Equal(t, "q análise competitiva", full[9])
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name        string
		results     int
		successRate float64
		analysisLen int
		want        float64
	}{
		{name: "empty", want: 0},
		{name: "small", results: 6, successRate: 50, analysisLen: 101, want: 0.1 + 0.2 + 0.1},
		{name: "medium", results: 11, successRate: 0, analysisLen: 501, want: 0.2 + 0.2},
		{name: "capped", results: 40, successRate: 100, analysisLen: 5000, want: 1.0},
		{name: "boundaries are exclusive", results: 20, successRate: 0, analysisLen: 1000, want: 0.2 + 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, QualityScore(tt.results, tt.successRate, tt.analysisLen), 1e-9)
		})
	}
}

func TestCollect(t *testing.T) {
	main := urls("principal", 3)
	related := append([]string{main[0]}, urls("relacionado", 2)...)
	searcher := &fakeSearcher{results: map[string][]string{
		"cafeteria artesanal":                          main,
		"cafeteria artesanal estatísticas Brasil 2024": related,
	}}
	ext := &fakeExtractor{content: map[string]string{
		main[0]:    longText("café"),
		main[1]:    "curto demais",
		related[1]: longText("grão"),
	}}
	gen := &fakeGenerator{reply: strings.Repeat("análise ", 80)}
	repo := newFakeRepo()
	archive := &fakeArchive{objects: make(map[string]*types.Collection)}

	uc := NewCollectorUseCase(testConfig(), searcher, ext,
		WithGenerator(gen),
		WithSessionRepo(repo),
		WithArchive(archive),
		WithLogger(logger.NewNop()),
	)

	c, err := uc.Collect(context.Background(), &CollectRequest{
		Query:     "cafeteria artesanal",
		Depth:     2,
		SessionID: "sessao-1",
	})
	require.NoError(t, err)

	require.Len(t, searcher.calls, 3)
	assert.Equal(t, searchCall{query: "cafeteria artesanal", maxResults: 30, sessionID: "sessao-1"}, searcher.calls[0])
	assert.Equal(t, 20, searcher.calls[1].maxResults)
	assert.Equal(t, "cafeteria artesanal pesquisa mercado dados", searcher.calls[2].query)

	assert.Equal(t, types.CollectionRealData, c.Type)
	assert.Equal(t, 5, c.Search.TotalResults)
	assert.Len(t, ext.urls, 5)

	require.Len(t, c.Sources, 2)
	assert.Equal(t, main[0], c.Sources[0].URL)
	assert.Equal(t, "Resultado "+main[0], c.Sources[0].Title)
	assert.Equal(t, "trafilatura", c.Sources[0].ExtractorUsed)
	assert.Equal(t, 2, c.Extraction.Succeeded)
	assert.Equal(t, 3, c.Extraction.Failed)
	assert.InDelta(t, 40.0, c.Extraction.SuccessRate, 1e-9)

	assert.Equal(t, 2, c.Analysis.SourcesAnalyzed)
	assert.Contains(t, gen.prompt, "--- FONTE: Resultado "+main[0]+" ---")
	assert.Contains(t, gen.prompt, "QUERY ORIGINAL: cafeteria artesanal")
	assert.Contains(t, gen.prompt, "- Segmento: N/A")
	assert.Empty(t, c.Analysis.Error)

	// 0 for 5 results, 0.16 for 40% extraction, 0.2 for the analysis
	assert.InDelta(t, 0.36, c.QualityScore, 1e-9)

	assert.Equal(t, "collections/sessao-1.json", c.ArchiveKey)
	stored, err := uc.Get(context.Background(), "sessao-1")
	require.NoError(t, err)
	assert.Same(t, c, stored)
	assert.Equal(t, 2, repo.sessions["sessao-1"].SourcesExtracted)
}

func TestCollectDefaultsQueryFromSegment(t *testing.T) {
	searcher := &fakeSearcher{}
	uc := NewCollectorUseCase(testConfig(), searcher, &fakeExtractor{}, WithLogger(logger.NewNop()))

	c, err := uc.Collect(context.Background(), &CollectRequest{
		Context: types.MarketContext{Segment: "pet shop"},
		Depth:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, "mercado pet shop Brasil 2024", c.Query)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "pet shop mercado brasileiro tendências 2024", searcher.calls[1].query)

	_, err = uc.Collect(context.Background(), &CollectRequest{Query: "  "})
	assert.ErrorIs(t, err, ErrQueryRequired)
}

func TestCollectEmergencyFallback(t *testing.T) {
	repo := newFakeRepo()
	uc := NewCollectorUseCase(testConfig(), &fakeSearcher{}, &fakeExtractor{},
		WithSessionRepo(repo),
		WithLogger(logger.NewNop()),
	)

	c, err := uc.Collect(context.Background(), &CollectRequest{Query: "nicho inexistente", SessionID: "s"})
	require.NoError(t, err)
	assert.Equal(t, types.CollectionEmergency, c.Type)
	assert.Equal(t, types.StatusFallback, c.Status)
	assert.InDelta(t, 0.1, c.QualityScore, 1e-9)
	assert.Contains(t, c.Analysis.Text, "nicho inexistente")
	assert.Empty(t, c.Sources)
	assert.Empty(t, c.ArchiveKey)

	stored, err := uc.Get(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, types.CollectionEmergency, stored.Type)
	assert.Equal(t, "nicho inexistente", stored.Query)
}

func TestCollectAnalysisFailures(t *testing.T) {
	page := "https://exame.com/cafe"
	newUC := func(opts ...Option) *CollectorUseCase {
		searcher := &fakeSearcher{results: map[string][]string{"café": {page}}}
		ext := &fakeExtractor{content: map[string]string{page: longText("café")}}
		return NewCollectorUseCase(testConfig(), searcher, ext, append(opts, WithLogger(logger.NewNop()))...)
	}

	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{name: "no generator", wantErr: ErrAnalyzerUnavailable.Error()},
		{name: "generator error", opts: []Option{WithGenerator(&fakeGenerator{err: errors.New("rate limited")})}, wantErr: "rate limited"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := newUC(tt.opts...).Collect(context.Background(), &CollectRequest{Query: "café", Depth: 1})
			require.NoError(t, err)
			assert.Equal(t, tt.wantErr, c.Analysis.Error)
			assert.Empty(t, c.Analysis.Text)
			assert.Len(t, c.Sources, 1)
			assert.InDelta(t, 0.4, c.QualityScore, 1e-9)
		})
	}
}

func TestCollectPersistenceFailureIsNotFatal(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("connection refused")
	uc := NewCollectorUseCase(testConfig(), &fakeSearcher{}, &fakeExtractor{},
		WithSessionRepo(repo),
		WithLogger(logger.NewNop()),
	)

	c, err := uc.Collect(context.Background(), &CollectRequest{Query: "café"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = uc.Get(context.Background(), c.ID)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestCollectCapsPages(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPages = 4
	searcher := &fakeSearcher{results: map[string][]string{"café": urls("loja", 7)}}
	ext := &fakeExtractor{}
	uc := NewCollectorUseCase(cfg, searcher, ext, WithLogger(logger.NewNop()))

	c, err := uc.Collect(context.Background(), &CollectRequest{Query: "café", Depth: 1})
	require.NoError(t, err)
	assert.Equal(t, 7, c.Search.TotalResults)
	assert.Len(t, c.Search.Results, 4)
	assert.Len(t, ext.urls, 4)
}

func TestCollectTruncatesCorpus(t *testing.T) {
	cfg := testConfig()
	cfg.SourceChars = 10
	page := "https://exame.com/cafe"
	searcher := &fakeSearcher{results: map[string][]string{"café": {page}}}
	ext := &fakeExtractor{content: map[string]string{page: longText("abcdefghij")}}
	gen := &fakeGenerator{reply: "ok"}
	uc := NewCollectorUseCase(cfg, searcher, ext, WithGenerator(gen), WithLogger(logger.NewNop()))

	_, err := uc.Collect(context.Background(), &CollectRequest{Query: "café", Depth: 1})
	require.NoError(t, err)
	assert.Contains(t, gen.prompt, "\nabcdefghij\n")
	assert.NotContains(t, gen.prompt, "abcdefghij abcdefghij")
}

func TestGetWithoutStorage(t *testing.T) {
	uc := NewCollectorUseCase(testConfig(), &fakeSearcher{}, &fakeExtractor{}, WithLogger(logger.NewNop()))
	_, err := uc.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	_, _, err = uc.List(context.Background(), 1, 10)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

type recordedStage struct {
	sessionID string
	stage     string
}

type fakeProgress struct {
	mu     sync.Mutex
	stages []recordedStage
}

func (p *fakeProgress) Publish(sessionID, stage string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, recordedStage{sessionID: sessionID, stage: stage})
}

func TestCollectPublishesProgress(t *testing.T) {
	page := "https://exame.com/cafe"

	tests := []struct {
		name    string
		results map[string][]string
		want    []string
	}{
		{
			name:    "full run",
			results: map[string][]string{"café": {page}},
			want:    []string{StageStarted, StageSearched, StageExtracted, StageAnalyzed, StageFinished},
		},
		{
			name: "emergency run",
			want: []string{StageStarted, StageSearched, StageFinished},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progress := &fakeProgress{}
			uc := NewCollectorUseCase(testConfig(),
				&fakeSearcher{results: tt.results},
				&fakeExtractor{content: map[string]string{page: longText("café")}},
				WithProgress(progress),
				WithLogger(logger.NewNop()),
			)

			_, err := uc.Collect(context.Background(), &CollectRequest{Query: "café", Depth: 1, SessionID: "sess-1"})
			require.NoError(t, err)

			got := make([]string, 0, len(progress.stages))
			for _, s := range progress.stages {
				assert.Equal(t, "sess-1", s.sessionID)
				got = append(got, s.stage)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
