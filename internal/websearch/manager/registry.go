package manager

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/pkg/metrics"
	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

// ProviderState is the health record of one provider
type ProviderState struct {
	ID         types.ProviderID
	Enabled    bool
	Priority   int
	ErrorCount int
	MaxErrors  int
	Category   types.Category
}

// ProviderStatus is the externally visible view of a ProviderState
type ProviderStatus struct {
	Enabled    bool           `json:"enabled"`
	Priority   int            `json:"priority"`
	ErrorCount int            `json:"error_count"`
	MaxErrors  int            `json:"max_errors"`
	Category   types.Category `json:"category"`
	Available  bool           `json:"available"`
}

// ProviderRegistry tracks error counts and trips providers once they reach
// their threshold. A tripped provider stays disabled until Reset.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[types.ProviderID]*ProviderState
	// configured remembers the enabled flag from configuration so Reset
	// does not turn on providers that were switched off by hand.
	configured map[types.ProviderID]bool

	logger  *logger.Logger
	metrics *metrics.Collector
}

// NewProviderRegistry creates an empty registry
func NewProviderRegistry(log *logger.Logger, m *metrics.Collector) *ProviderRegistry {
	return &ProviderRegistry{
		providers:  make(map[types.ProviderID]*ProviderState),
		configured: make(map[types.ProviderID]bool),
		logger:     logger.OrGlobal(log).Named("registry"),
		metrics:    m,
	}
}

// Register adds or replaces a provider. maxErrors <= 0 picks the category default.
func (r *ProviderRegistry) Register(id types.ProviderID, priority, maxErrors int, enabled bool) {
	category := types.CategoryOf(id)
	if maxErrors <= 0 {
		maxErrors = types.DefaultAPIMaxErrors
		if category == types.CategoryScraping {
			maxErrors = types.DefaultScrapingMaxErrors
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[id] = &ProviderState{
		ID:        id,
		Enabled:   enabled,
		Priority:  priority,
		MaxErrors: maxErrors,
		Category:  category,
	}
	r.configured[id] = enabled
}

// RecordError counts one failure and reports whether the provider tripped
// on this call. Unknown ids are ignored.
func (r *ProviderRegistry) RecordError(id types.ProviderID) bool {
	r.mu.Lock()
	state, ok := r.providers[id]
	if !ok {
		r.mu.Unlock()
		return false
	}

	state.ErrorCount++
	tripped := state.Enabled && state.ErrorCount >= state.MaxErrors
	if state.ErrorCount >= state.MaxErrors {
		state.Enabled = false
	}
	count, limit := state.ErrorCount, state.MaxErrors
	r.mu.Unlock()

	if tripped {
		r.metrics.ProviderTripped(string(id))
		r.logger.Warn("provider disabled after repeated errors",
			zap.String("provider", string(id)),
			zap.Int("error_count", count),
			zap.Int("max_errors", limit),
		)
	}
	return tripped
}

// Reset clears the error count of a provider and restores its configured
// enabled flag.
func (r *ProviderRegistry) Reset(id types.ProviderID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.providers[id]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrProviderNotFound, id)
	}
	state.ErrorCount = 0
	state.Enabled = r.configured[id]
	r.logger.Info("provider reset", zap.String("provider", string(id)))
	return nil
}

// ResetAll resets every provider
func (r *ProviderRegistry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, state := range r.providers {
		state.ErrorCount = 0
		state.Enabled = r.configured[id]
	}
	r.logger.Info("all providers reset", zap.Int("providers", len(r.providers)))
}

// IsAvailable reports whether a provider may be called
func (r *ProviderRegistry) IsAvailable(id types.ProviderID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.providers[id]
	return ok && available(state)
}

// Enabled returns the callable providers ordered by priority, then id
func (r *ProviderRegistry) Enabled() []types.ProviderID {
	r.mu.RLock()
	states := make([]ProviderState, 0, len(r.providers))
	for _, s := range r.providers {
		if available(s) {
			states = append(states, *s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool {
		if states[i].Priority != states[j].Priority {
			return states[i].Priority < states[j].Priority
		}
		return states[i].ID < states[j].ID
	})

	ids := make([]types.ProviderID, len(states))
	for i, s := range states {
		ids[i] = s.ID
	}
	return ids
}

// Status returns a snapshot of every provider
func (r *ProviderRegistry) Status() map[types.ProviderID]ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[types.ProviderID]ProviderStatus, len(r.providers))
	for id, s := range r.providers {
		out[id] = ProviderStatus{
			Enabled:    s.Enabled,
			Priority:   s.Priority,
			ErrorCount: s.ErrorCount,
			MaxErrors:  s.MaxErrors,
			Category:   s.Category,
			Available:  available(s),
		}
	}
	return out
}

func available(s *ProviderState) bool {
	return s.Enabled && s.ErrorCount < s.MaxErrors
}
