package manager

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

// fakeProvider is a scripted provider.Provider
type fakeProvider struct {
	id       types.ProviderID
	category types.Category
	results  []*types.SearchResult
	err      error
	panicMsg string
	block    bool

	calls atomic.Int32

	mu       sync.Mutex
	requests []*types.SearchRequest
}

func newFake(id types.ProviderID, urls ...string) *fakeProvider {
	f := &fakeProvider{id: id, category: types.CategoryOf(id)}
	for _, u := range urls {
		f.results = append(f.results, &types.SearchResult{Title: "t " + u, URL: u})
	}
	return f
}

func (f *fakeProvider) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block {
		<-ctx.Done()
		return nil, &types.ProviderError{Provider: f.id, Code: "REQUEST_FAILED", Err: ctx.Err()}
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*types.SearchResult, len(f.results))
	for i, r := range f.results {
		out[i] = r.Clone()
	}
	return &types.SearchResponse{Query: req.Query, Results: out, Provider: f.id}, nil
}

func (f *fakeProvider) GetID() types.ProviderID { return f.id }
func (f *fakeProvider) GetName() string { return string(f.id) }
func (f *fakeProvider) Category() types.Category { return f.category }
func (f *fakeProvider) Validate() error { return nil }
func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeProvider) lastRequest() *types.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}
