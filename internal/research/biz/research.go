package biz

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/market-research-backend/internal/extractor"
	"github.com/lk2023060901/market-research-backend/internal/llm"
	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/research/types"
	"github.com/lk2023060901/market-research-backend/internal/websearch/manager"
	searchtypes "github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

// Searcher runs one unified search
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int, searchCtx map[string]any, sessionID string) *manager.UnifiedSearchResponse
}

// ContentExtractor extracts pages sequentially
type ContentExtractor interface {
	ExtractBatch(ctx context.Context, urls []string, delay time.Duration) []*extractor.Result
}

// SessionRepo persists session summary rows
type SessionRepo interface {
	Create(ctx context.Context, session *types.Session) error
	GetByID(ctx context.Context, id string) (*types.Session, error)
	List(ctx context.Context, page, pageSize int) ([]*types.Session, int64, error)
}

// Archive stores full collections as objects
type Archive interface {
	Save(ctx context.Context, key string, c *types.Collection) error
	Load(ctx context.Context, key string) (*types.Collection, error)
}

// Progress receives stage updates of a running collection
type Progress interface {
	Publish(sessionID, stage string, data any)
}

// Collection stages reported through Progress
const (
	StageStarted   = "started"
	StageSearched  = "searched"
	StageExtracted = "extracted"
	StageAnalyzed  = "analyzed"
	StageFinished  = "finished"
)

// ArchiveKey is the object name of collection id
func ArchiveKey(id string) string {
	return "collections/" + id + ".json"
}

// Config tunes a collection run
type Config struct {
	MainResults     int           `mapstructure:"main_results"`
	RelatedResults  int           `mapstructure:"related_results"`
	DefaultDepth    int           `mapstructure:"default_depth"`
	RelatedDelay    time.Duration `mapstructure:"related_delay"`
	MaxPages        int           `mapstructure:"max_pages"`
	ExtractDelay    time.Duration `mapstructure:"extract_delay"`
	MinContent      int           `mapstructure:"min_content"`
	AnalysisSources int           `mapstructure:"analysis_sources"`
	SourceChars     int           `mapstructure:"source_chars"`
	TokenBudget     int           `mapstructure:"token_budget"`
}

// DefaultConfig returns the collection defaults
func DefaultConfig() *Config {
	return &Config{
		MainResults:     30,
		RelatedResults:  20,
		DefaultDepth:    3,
		RelatedDelay:    time.Second,
		MaxPages:        50,
		ExtractDelay:    500 * time.Millisecond,
		MinContent:      200,
		AnalysisSources: 10,
		SourceChars:     2000,
		TokenBudget:     12000,
	}
}

// CollectRequest asks for one research run
type CollectRequest struct {
	Query     string
	Context   types.MarketContext
	Depth     int
	SessionID string
}

// Option customises a CollectorUseCase
type Option func(*CollectorUseCase)

// WithSessionRepo enables session rows
func WithSessionRepo(r SessionRepo) Option {
	return func(uc *CollectorUseCase) { uc.repo = r }
}

// WithArchive enables the collection archive
func WithArchive(a Archive) Option {
	return func(uc *CollectorUseCase) { uc.archive = a }
}

// WithGenerator enables the analysis step
func WithGenerator(g llm.Generator) Option {
	return func(uc *CollectorUseCase) { uc.generator = g }
}

// WithTokenCounter sets the counter used to fit the corpus in the budget
func WithTokenCounter(c llm.TokenCounter) Option {
	return func(uc *CollectorUseCase) { uc.counter = c }
}

// WithProgress reports collection stages to p
func WithProgress(p Progress) Option {
	return func(uc *CollectorUseCase) { uc.progress = p }
}

// WithLogger sets the use case logger
func WithLogger(l *logger.Logger) Option {
	return func(uc *CollectorUseCase) { uc.logger = l }
}

// CollectorUseCase runs search, extraction and analysis for a market
type CollectorUseCase struct {
	config    *Config
	searcher  Searcher
	extractor ContentExtractor
	repo      SessionRepo
	archive   Archive
	generator llm.Generator
	counter   llm.TokenCounter
	progress  Progress
	logger    *logger.Logger
}

// NewCollectorUseCase creates a collector use case
func NewCollectorUseCase(cfg *Config, searcher Searcher, ext ContentExtractor, opts ...Option) *CollectorUseCase {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	uc := &CollectorUseCase{
		config:    cfg,
		searcher:  searcher,
		extractor: ext,
		counter:   llm.EstimateCounter{},
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.logger = logger.OrGlobal(uc.logger).Named("research")
	return uc
}

// Collect runs a full collection. Only an invalid request fails; every
// later problem is recorded on the returned collection.
func (uc *CollectorUseCase) Collect(ctx context.Context, req *CollectRequest) (*types.Collection, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		if req.Context.Segment == "" {
			return nil, ErrQueryRequired
		}
		query = DefaultQuery(req.Context.Segment)
	}

	id := req.SessionID
	if id == "" {
		id = uuid.New().String()
	}
	ctx = logger.WithSessionID(ctx, id)
	log := uc.logger.WithContext(ctx).With(zap.String("query", query))

	start := time.Now()
	c := &types.Collection{
		ID:         id,
		Query:      query,
		Context:    req.Context,
		Type:       types.CollectionRealData,
		Status:     types.StatusCompleted,
		ArchiveKey: ArchiveKey(id),
		CreatedAt:  start.UTC(),
	}

	depth := uc.depth(req.Depth)
	log.Info("collection started", zap.Int("depth", depth))
	uc.publish(id, StageStarted, map[string]any{"query": query, "depth": depth})
	c.Search = uc.search(ctx, log, id, query, req.Context, depth)
	uc.publish(id, StageSearched, map[string]any{"total_results": c.Search.TotalResults, "pages": len(c.Search.Results)})

	if len(c.Search.Results) == 0 {
		log.Warn("search returned nothing, using emergency data")
		uc.emergency(c)
	} else {
		c.Sources, c.Extraction = uc.extract(ctx, log, c.Search.Results)
		uc.publish(id, StageExtracted, c.Extraction)
		c.Analysis = uc.analyze(ctx, log, query, req.Context, c.Sources)
		uc.publish(id, StageAnalyzed, map[string]any{"sources_analyzed": c.Analysis.SourcesAnalyzed, "error": c.Analysis.Error})
		c.QualityScore = QualityScore(c.Search.TotalResults, c.Extraction.SuccessRate, utf8.RuneCountInString(c.Analysis.Text))
	}

	c.CompletedAt = time.Now().UTC()
	c.Duration = time.Since(start).Seconds()
	uc.persist(ctx, log, c)
	uc.publish(id, StageFinished, types.SessionFromCollection(c))

	log.Info("collection finished",
		zap.String("type", string(c.Type)),
		zap.Int("sources", len(c.Sources)),
		zap.Float64("quality", c.QualityScore),
		zap.Duration("duration", time.Since(start)),
	)
	return c, nil
}

func (uc *CollectorUseCase) publish(id, stage string, data any) {
	if uc.progress != nil {
		uc.progress.Publish(id, stage, data)
	}
}

func (uc *CollectorUseCase) depth(requested int) int {
	if requested <= 0 {
		return uc.config.DefaultDepth
	}
	return min(requested, maxRelatedQueries)
}

// search runs the main query then the related ones one after another,
// deduplicating by URL across searches.
func (uc *CollectorUseCase) search(ctx context.Context, log *logger.Logger, id, query string, mc types.MarketContext, depth int) types.SearchSummary {
	related := RelatedQueries(query, mc)
	summary := types.SearchSummary{MainQuery: query, RelatedQueries: related}

	seen := make(map[string]struct{})
	var unique []*searchtypes.SearchResult
	collect := func(resp *manager.UnifiedSearchResponse) {
		if resp == nil {
			return
		}
		for _, r := range resp.Results {
			if r.URL == "" {
				continue
			}
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}
			unique = append(unique, r)
		}
	}

	collect(uc.searcher.Search(ctx, query, uc.config.MainResults, mc.Map(), id))
	for _, q := range related[:min(depth, len(related))] {
		if err := wait(ctx, uc.config.RelatedDelay); err != nil {
			log.Warn("related searches interrupted", zap.Error(err))
			break
		}
		collect(uc.searcher.Search(ctx, q, uc.config.RelatedResults, mc.Map(), id))
	}

	summary.TotalResults = len(unique)
	if len(unique) > uc.config.MaxPages {
		unique = unique[:uc.config.MaxPages]
	}
	summary.Results = unique
	return summary
}

func (uc *CollectorUseCase) extract(ctx context.Context, log *logger.Logger, results []*searchtypes.SearchResult) ([]*types.Source, types.ExtractionSummary) {
	urls := make([]string, len(results))
	for i, r := range results {
		urls[i] = r.URL
	}

	extracted := uc.extractor.ExtractBatch(ctx, urls, uc.config.ExtractDelay)
	stats := types.ExtractionSummary{Attempted: len(urls)}
	sources := make([]*types.Source, 0, len(extracted))
	for i, res := range extracted {
		length := utf8.RuneCountInString(res.Content)
		if !res.Succeeded() || length <= uc.config.MinContent {
			stats.Failed++
			log.Debug("content insufficient", zap.String("url", urls[i]), zap.String("error", res.Metadata.Error))
			continue
		}

		title := res.Metadata.Title
		if title == "" {
			title = results[i].Title
		}
		sources = append(sources, &types.Source{
			URL:           urls[i],
			Title:         title,
			Content:       res.Content,
			ContentLength: length,
			Provider:      results[i].Source,
			ExtractorUsed: res.Metadata.ExtractorUsed,
		})
		stats.Succeeded++
		stats.TotalChars += length
	}

	if stats.Attempted > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Attempted) * 100
	}
	return sources, stats
}

func (uc *CollectorUseCase) analyze(ctx context.Context, log *logger.Logger, query string, mc types.MarketContext, sources []*types.Source) types.Analysis {
	if uc.generator == nil {
		return types.Analysis{Error: ErrAnalyzerUnavailable.Error()}
	}
	if len(sources) == 0 {
		return types.Analysis{Error: ErrNoContent.Error()}
	}

	corpus, n := buildCorpus(sources, uc.config.AnalysisSources, uc.config.SourceChars)
	if uc.config.TokenBudget > 0 {
		corpus = uc.counter.Truncate(corpus, uc.config.TokenBudget)
	}
	analysis := types.Analysis{SourcesAnalyzed: n, CorpusTokens: uc.counter.Count(corpus)}

	text, err := uc.generator.Generate(ctx, buildAnalysisPrompt(query, mc, corpus))
	if err != nil {
		log.Error("analysis failed", zap.Error(err))
		analysis.Error = err.Error()
		return analysis
	}
	analysis.Text = text
	return analysis
}

func (uc *CollectorUseCase) emergency(c *types.Collection) {
	c.Type = types.CollectionEmergency
	c.Status = types.StatusFallback
	c.Sources = []*types.Source{}
	c.QualityScore = emergencyQuality
	c.Analysis = types.Analysis{
		Text: fmt.Sprintf("Análise de emergência para '%s'. Dados limitados disponíveis devido a falha na coleta.", c.Query),
	}
}

// persist writes the session row and the archive side by side. Failures
// are logged and leave the collection untouched.
func (uc *CollectorUseCase) persist(ctx context.Context, log *logger.Logger, c *types.Collection) {
	if uc.repo == nil && uc.archive == nil {
		return
	}
	if uc.archive == nil {
		c.ArchiveKey = ""
	}

	var g errgroup.Group
	if uc.repo != nil {
		g.Go(func() error {
			if err := uc.repo.Create(ctx, types.SessionFromCollection(c)); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			return nil
		})
	}
	if uc.archive != nil {
		g.Go(func() error {
			if err := uc.archive.Save(ctx, c.ArchiveKey, c); err != nil {
				return fmt.Errorf("archive collection: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("collection not persisted", zap.Error(err))
	}
}

// Get loads a stored collection. Without an archive only the session
// summary is available.
func (uc *CollectorUseCase) Get(ctx context.Context, id string) (*types.Collection, error) {
	if uc.repo == nil {
		return nil, ErrStorageUnavailable
	}
	if id == "" {
		return nil, ErrCollectionNotFound
	}

	session, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if uc.archive == nil || session.ArchiveKey == "" {
		return collectionFromSession(session), nil
	}
	c, err := uc.archive.Load(ctx, session.ArchiveKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	return c, nil
}

// List pages through stored sessions, newest first
func (uc *CollectorUseCase) List(ctx context.Context, page, pageSize int) ([]*types.Session, int64, error) {
	if uc.repo == nil {
		return nil, 0, ErrStorageUnavailable
	}
	sessions, total, err := uc.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, total, nil
}

func collectionFromSession(s *types.Session) *types.Collection {
	return &types.Collection{
		ID:           s.ID,
		Query:        s.Query,
		Context:      types.MarketContext{Segment: s.Segment},
		Type:         s.Type,
		Status:       s.Status,
		Search:       types.SearchSummary{MainQuery: s.Query, TotalResults: s.TotalResults},
		QualityScore: s.QualityScore,
		CreatedAt:    s.CreatedAt,
		CompletedAt:  s.UpdatedAt,
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
