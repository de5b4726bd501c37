package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

// Constructor builds a provider from its configuration
type Constructor func(config *types.ProviderConfig, opts ...Option) (Provider, error)

// Factory creates provider instances
type Factory struct {
	mu           sync.RWMutex
	constructors map[types.ProviderID]Constructor
}

// NewFactory creates a new provider factory
func NewFactory() *Factory {
	f := &Factory{
		constructors: make(map[types.ProviderID]Constructor),
	}

	f.Register(types.ProviderGoogle, NewGoogleProvider)
	f.Register(types.ProviderSerper, NewSerperProvider)
	f.Register(types.ProviderBing, NewBingProvider)
	f.Register(types.ProviderDuckDuckGo, NewDuckDuckGoProvider)
	f.Register(types.ProviderTavily, NewTavilyProvider)
	f.Register(types.ProviderSearXNG, NewSearXNGProvider)
	f.Register(types.ProviderExa, NewExaProvider)

	return f
}

// Register registers a provider constructor
func (f *Factory) Register(id types.ProviderID, constructor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[id] = constructor
}

// Create fills config defaults, validates it and builds the provider
func (f *Factory) Create(config *types.ProviderConfig, opts ...Option) (Provider, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config for %s: %w", config.ID, err)
	}

	f.mu.RLock()
	constructor, exists := f.constructors[config.ID]
	f.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", types.ErrProviderNotFound, config.ID)
	}

	return constructor(config, opts...)
}

// ListProviders returns the registered provider IDs in sorted order
func (f *Factory) ListProviders() []types.ProviderID {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]types.ProviderID, 0, len(f.constructors))
	for id := range f.constructors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
