// Package manager fans a query out to every enabled search provider,
// merges, deduplicates and ranks the results, and trips providers that
// keep failing.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/pkg/metrics"
	"github.com/lk2023060901/market-research-backend/internal/pkg/workerpool"
	"github.com/lk2023060901/market-research-backend/internal/websearch/provider"
	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

// SearchTypeUnified tags responses produced by Search
const SearchTypeUnified = "unified_multi_provider"

// Config controls the fan-out
type Config struct {
	Timeout           time.Duration `mapstructure:"timeout"`             // overall deadline of one search
	Workers           int           `mapstructure:"workers"`             // providers in flight per search
	DefaultMaxResults int           `mapstructure:"default_max_results"` // used when the caller passes <= 0
	PreferredDomains  []string      `mapstructure:"preferred_domains"`
}

// DefaultConfig returns the default fan-out configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:           45 * time.Second,
		Workers:           4,
		DefaultMaxResults: 20,
		PreferredDomains:  DefaultPreferredDomains,
	}
}

// Statistics summarises one unified search
type Statistics struct {
	TotalResults     int                `json:"total_results"`
	ProvidersUsed    int                `json:"providers_used"`
	SearchTime       float64            `json:"search_time"` // seconds
	BrazilianSources int                `json:"brazilian_sources"`
	PreferredSources int                `json:"preferred_sources"`
	ProviderErrors   []types.ProviderID `json:"provider_errors"`
}

// Metadata describes when and for whom a search ran
type Metadata struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id,omitempty"`
	SearchType string    `json:"search_type"`
}

// UnifiedSearchResponse is built once per Search call and not touched after
type UnifiedSearchResponse struct {
	Query           string                                    `json:"query"`
	Context         map[string]any                            `json:"context,omitempty"`
	Results         []*types.SearchResult                     `json:"results"`
	ProviderResults map[types.ProviderID][]*types.SearchResult `json:"provider_results"`
	Statistics      Statistics                                `json:"statistics"`
	Metadata        Metadata                                  `json:"metadata"`
}

// Option customises a Manager
type Option func(*Manager)

// WithLogger sets the manager logger
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics sets the metrics collector
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) { m.metrics = c }
}

// WithPool runs provider calls on a shared pool instead of a private one
func WithPool(p *workerpool.Pool) Option {
	return func(m *Manager) { m.pool = p }
}

// Manager is the unified search manager
type Manager struct {
	config      *Config
	registry    *ProviderRegistry
	prioritizer *Prioritizer
	pool        *workerpool.Pool
	ownsPool    bool
	logger      *logger.Logger
	metrics     *metrics.Collector

	mu        sync.RWMutex
	providers map[types.ProviderID]provider.Provider
}

// New creates a manager without providers
func New(cfg *Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.DefaultMaxResults <= 0 {
		cfg.DefaultMaxResults = def.DefaultMaxResults
	}

	m := &Manager{
		config:      cfg,
		prioritizer: NewPrioritizer(cfg.PreferredDomains),
		providers:   make(map[types.ProviderID]provider.Provider),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logger.OrGlobal(m.logger).Named("search")
	m.registry = NewProviderRegistry(m.logger, m.metrics)

	if m.pool == nil {
		// Sized for several concurrent searches; each one is still limited
		// to cfg.Workers providers in flight by its group.
		pool, err := workerpool.New(&workerpool.Config{Size: cfg.Workers * 8}, m.logger)
		if err != nil {
			return nil, fmt.Errorf("create search pool: %w", err)
		}
		m.pool = pool
		m.ownsPool = true
	}
	return m, nil
}

// NewFromConfigs creates a manager and builds its providers through the
// factory. Providers that fail validation are skipped with a warning,
// which is how unconfigured API providers stay out of the rotation.
func NewFromConfigs(cfg *Config, factory *provider.Factory, configs []types.ProviderConfig, opts []Option, providerOpts ...provider.Option) (*Manager, error) {
	m, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	for i := range configs {
		pc := configs[i]
		p, err := factory.Create(&pc, providerOpts...)
		if err != nil {
			m.logger.Warn("search provider not configured",
				zap.String("provider", string(pc.ID)),
				zap.Error(err),
			)
			continue
		}
		m.AddProvider(p, pc)
	}

	m.logger.Info("unified search manager initialized",
		zap.Int("providers", len(m.registry.Status())),
		zap.Int("enabled", len(m.registry.Enabled())),
	)
	return m, nil
}

// AddProvider registers p with the priority, threshold and enabled flag of cfg
func (m *Manager) AddProvider(p provider.Provider, cfg types.ProviderConfig) {
	m.mu.Lock()
	m.providers[p.GetID()] = p
	m.mu.Unlock()

	enabled := cfg.Enabled && p.IsAvailable(context.Background())
	m.registry.Register(p.GetID(), cfg.Priority, cfg.MaxErrors, enabled)
}

// ProviderStatus returns the health of every provider
func (m *Manager) ProviderStatus() map[types.ProviderID]ProviderStatus {
	return m.registry.Status()
}

// ResetProvider clears the error count of one provider
func (m *Manager) ResetProvider(id types.ProviderID) error {
	return m.registry.Reset(id)
}

// ResetAll clears every provider's error count
func (m *Manager) ResetAll() {
	m.registry.ResetAll()
}

// Close releases the private worker pool
func (m *Manager) Close() error {
	if m.ownsPool {
		return m.pool.Close()
	}
	return nil
}

type outcome struct {
	id      types.ProviderID
	results []*types.SearchResult
	err     error
}

// Search queries every enabled provider concurrently and returns the merged,
// deduplicated and ranked results. Provider failures only reduce the result
// set; Search itself never fails.
func (m *Manager) Search(ctx context.Context, query string, maxResults int, searchCtx map[string]any, sessionID string) *UnifiedSearchResponse {
	start := time.Now()
	query = strings.TrimSpace(query)
	log := m.logger.WithContext(ctx).With(zap.String("query", query))

	resp := &UnifiedSearchResponse{
		Query:           query,
		Context:         searchCtx,
		Results:         []*types.SearchResult{},
		ProviderResults: map[types.ProviderID][]*types.SearchResult{},
		Statistics:      Statistics{ProviderErrors: []types.ProviderID{}},
		Metadata: Metadata{
			Timestamp:  start,
			SessionID:  sessionID,
			SearchType: SearchTypeUnified,
		},
	}
	defer func() {
		took := time.Since(start)
		resp.Statistics.SearchTime = took.Seconds()
		m.metrics.ObserveSearch(took)
	}()

	if err := types.ValidateQuery(query); err != nil {
		log.Warn("search skipped", zap.Error(err))
		return resp
	}

	ids := m.registry.Enabled()
	if len(ids) == 0 {
		log.Warn("no search provider enabled")
		return resp
	}

	if maxResults <= 0 {
		maxResults = m.config.DefaultMaxResults
	}
	share := (maxResults + len(ids) - 1) / len(ids)

	merged, providerResults, failed := m.fanOut(ctx, log, ids, query, share)

	for _, results := range providerResults {
		for _, r := range results {
			m.prioritizer.Annotate(r)
		}
	}

	unique := Dedup(merged)
	Rank(unique)

	resp.Results = unique
	resp.ProviderResults = providerResults
	resp.Statistics.ProviderErrors = failed
	resp.Statistics.TotalResults = len(unique)
	resp.Statistics.ProvidersUsed = len(providerResults)
	for _, r := range unique {
		if r.IsBrazilian {
			resp.Statistics.BrazilianSources++
		}
		if r.IsPreferred {
			resp.Statistics.PreferredSources++
		}
	}

	log.Info("unified search completed",
		zap.Int("results", len(unique)),
		zap.Int("providers_used", len(providerResults)),
		zap.Int("provider_errors", len(failed)),
		zap.Duration("duration", time.Since(start)),
	)
	return resp
}

// fanOut dispatches one call per provider and collects outcomes until every
// provider reported or the deadline passed. Results are merged in completion
// order.
func (m *Manager) fanOut(parent context.Context, log *logger.Logger, ids []types.ProviderID, query string, share int) ([]*types.SearchResult, map[types.ProviderID][]*types.SearchResult, []types.ProviderID) {
	ctx, cancel := context.WithTimeout(parent, m.config.Timeout)
	defer cancel()

	m.mu.RLock()
	targets := make(map[types.ProviderID]provider.Provider, len(ids))
	for _, id := range ids {
		if p, ok := m.providers[id]; ok {
			targets[id] = p
		}
	}
	m.mu.RUnlock()

	outcomes := make(chan outcome, len(ids))
	group := m.pool.NewGroup(m.config.Workers)
	go func() {
		for _, id := range ids {
			p, ok := targets[id]
			if !ok {
				outcomes <- outcome{id: id, err: fmt.Errorf("%w: %s", types.ErrProviderNotFound, id)}
				continue
			}
			if err := group.Go(ctx, func() { outcomes <- m.call(ctx, p, query, share) }); err != nil {
				outcomes <- outcome{id: id, err: err}
			}
		}
	}()

	pending := make(map[types.ProviderID]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}

	var (
		merged   []*types.SearchResult
		byID     = map[types.ProviderID][]*types.SearchResult{}
		failed   = []types.ProviderID{}
		deadline bool
	)

	for len(pending) > 0 && !deadline {
		select {
		case o := <-outcomes:
			delete(pending, o.id)
			if o.err != nil {
				m.fail(parent, log, o.id, o.err)
				failed = append(failed, o.id)
				continue
			}
			if len(o.results) == 0 {
				log.Info("provider returned no results", zap.String("provider", string(o.id)))
				continue
			}
			byID[o.id] = o.results
			merged = append(merged, o.results...)
		case <-ctx.Done():
			deadline = true
		}
	}

	// Cancelling here tears down the HTTP calls of abandoned providers.
	cancel()

	late := make([]types.ProviderID, 0, len(pending))
	for id := range pending {
		late = append(late, id)
	}
	sort.Slice(late, func(i, j int) bool { return late[i] < late[j] })
	for _, id := range late {
		m.fail(parent, log, id, fmt.Errorf("%w: no response within %s", types.ErrProviderTimeout, m.config.Timeout))
		failed = append(failed, id)
	}

	return merged, byID, failed
}

// fail records a provider failure. Failures caused by the caller giving up
// are not held against the provider.
func (m *Manager) fail(parent context.Context, log *logger.Logger, id types.ProviderID, err error) {
	if parent.Err() != nil {
		log.Debug("provider call abandoned by caller", zap.String("provider", string(id)), zap.Error(err))
		return
	}
	log.Warn("provider search failed", zap.String("provider", string(id)), zap.Error(err))
	m.registry.RecordError(id)
}

// call runs one provider and converts panics into errors.
func (m *Manager) call(ctx context.Context, p provider.Provider, query string, share int) (out outcome) {
	id := p.GetID()
	out.id = id
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = outcome{id: id, err: fmt.Errorf("%w: %v", types.ErrProviderPanic, r)}
		}

		status := metrics.OutcomeSuccess
		switch {
		case out.err != nil:
			status = metrics.OutcomeError
		case len(out.results) == 0:
			status = metrics.OutcomeEmpty
		}
		m.metrics.ObserveProviderCall(string(id), status, len(out.results), time.Since(start))
	}()

	resp, err := p.Search(ctx, &types.SearchRequest{Query: query, MaxResults: share})
	if err != nil {
		var perr *types.ProviderError
		if !errors.As(err, &perr) {
			err = &types.ProviderError{Provider: id, Code: "SEARCH_FAILED", Message: "provider search failed", Err: err}
		}
		out.err = err
		return out
	}
	if resp == nil {
		return out
	}

	results := make([]*types.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r == nil {
			continue
		}
		c := r.Clone()
		c.Source = id
		results = append(results, c)
	}
	out.results = results
	return out
}
