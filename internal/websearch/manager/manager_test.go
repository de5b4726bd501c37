package manager

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

func newTestManager(t *testing.T, cfg *Config, fakes ...*fakeProvider) *Manager {
	t.Helper()
	m, err := New(cfg, WithLogger(logger.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	for i, f := range fakes {
		m.AddProvider(f, types.ProviderConfig{ID: f.id, Enabled: true, Priority: i + 1})
	}
	return m
}

func assertUniqueURLs(t *testing.T, results []*types.SearchResult) {
	t.Helper()
	seen := map[string]bool{}
	for _, r := range results {
		assert.False(t, seen[r.URL], "duplicate url %s", r.URL)
		seen[r.URL] = true
	}
}

func TestManager_Search_MergeAndDedup(t *testing.T) {
	google := newFake(types.ProviderGoogle,
		"https://a.example.com/1",
		"https://a.example.com/2",
		"https://a.example.com/3",
		"https://a.example.com/4",
		"https://a.example.com/5",
	)
	bing := newFake(types.ProviderBing,
		"https://a.example.com/2",
		"https://a.example.com/4",
		"https://b.example.com/6",
	)
	m := newTestManager(t, nil, google, bing)

	resp := m.Search(context.Background(), "cafeteria artesanal", 20, map[string]any{"segmento": "food"}, "sess-1")

	assert.Len(t, resp.Results, 6)
	assert.Equal(t, 6, resp.Statistics.TotalResults)
	assert.Equal(t, 2, resp.Statistics.ProvidersUsed)
	assert.Empty(t, resp.Statistics.ProviderErrors)
	assertUniqueURLs(t, resp.Results)

	assert.Len(t, resp.ProviderResults[types.ProviderGoogle], 5)
	assert.Len(t, resp.ProviderResults[types.ProviderBing], 3)
	assert.Equal(t, "cafeteria artesanal", resp.Query)
	assert.Equal(t, "sess-1", resp.Metadata.SessionID)
	assert.Equal(t, SearchTypeUnified, resp.Metadata.SearchType)
	assert.Equal(t, "food", resp.Context["segmento"])
	assert.GreaterOrEqual(t, resp.Statistics.SearchTime, 0.0)
}

func TestManager_Search_Allocation(t *testing.T) {
	a := newFake(types.ProviderGoogle)
	b := newFake(types.ProviderSerper)
	c := newFake(types.ProviderBing)
	m := newTestManager(t, nil, a, b, c)

	m.Search(context.Background(), "q", 10, nil, "")
	assert.Equal(t, 4, a.lastRequest().MaxResults)
	assert.Equal(t, 4, c.lastRequest().MaxResults)

	m.Search(context.Background(), "q", 0, nil, "")
	assert.Equal(t, 7, b.lastRequest().MaxResults)

	m.Search(context.Background(), "q", 1, nil, "")
	assert.Equal(t, 1, b.lastRequest().MaxResults)
}

func TestManager_Search_Ranking(t *testing.T) {
	p := newFake(types.ProviderGoogle,
		"https://plain.example.com/x",
		"https://www.loja.com.br/y",
		"https://g1.globo.com/economia/z",
		"https://portalbrasil.net/w",
		"https://other.example.org/v",
	)
	m := newTestManager(t, nil, p)

	resp := m.Search(context.Background(), "q", 10, nil, "")
	require.Len(t, resp.Results, 5)

	urls := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		urls[i] = r.URL
	}
	assert.Equal(t, []string{
		"https://g1.globo.com/economia/z",
		"https://www.loja.com.br/y",
		"https://portalbrasil.net/w",
		"https://plain.example.com/x",
		"https://other.example.org/v",
	}, urls)

	top := resp.Results[0]
	assert.True(t, top.IsPreferred)
	assert.True(t, top.IsBrazilian)
	assert.Equal(t, 4.0, top.PriorityScore)
	assert.Equal(t, 3.0, resp.Results[1].PriorityScore)
	assert.Equal(t, 1.0, resp.Results[4].PriorityScore)

	assert.Equal(t, 3, resp.Statistics.BrazilianSources)
	assert.Equal(t, 1, resp.Statistics.PreferredSources)
}

func TestManager_Search_ErrorTrip(t *testing.T) {
	broken := newFake(types.ProviderSerper)
	broken.err = &types.ProviderError{Provider: types.ProviderSerper, Code: "HTTP_500", Err: types.ErrInvalidResponse}
	healthy := newFake(types.ProviderBing, "https://ok.example.com")

	m := newTestManager(t, nil, broken, healthy)

	for i := 0; i < 3; i++ {
		resp := m.Search(context.Background(), "q", 10, nil, "")
		assert.Equal(t, []types.ProviderID{types.ProviderSerper}, resp.Statistics.ProviderErrors)
		assert.Len(t, resp.Results, 1)
	}
	require.Equal(t, int32(3), broken.calls.Load())

	status := m.ProviderStatus()[types.ProviderSerper]
	assert.False(t, status.Available)
	assert.False(t, status.Enabled)
	assert.Equal(t, 3, status.ErrorCount)
	assert.Equal(t, 3, status.MaxErrors)

	resp := m.Search(context.Background(), "q", 10, nil, "")
	assert.Equal(t, int32(3), broken.calls.Load(), "disabled provider must not be called")
	assert.Empty(t, resp.Statistics.ProviderErrors)
	assert.Equal(t, 1, resp.Statistics.ProvidersUsed)

	require.NoError(t, m.ResetProvider(types.ProviderSerper))
	assert.True(t, m.ProviderStatus()[types.ProviderSerper].Available)
	m.Search(context.Background(), "q", 10, nil, "")
	assert.Equal(t, int32(4), broken.calls.Load())
}

func TestManager_Search_EmptyIsNotError(t *testing.T) {
	empty := newFake(types.ProviderGoogle)
	m := newTestManager(t, nil, empty)

	for i := 0; i < 5; i++ {
		resp := m.Search(context.Background(), "q", 10, nil, "")
		assert.Empty(t, resp.Results)
		assert.Equal(t, 0, resp.Statistics.ProvidersUsed)
	}
	assert.Equal(t, 0, m.ProviderStatus()[types.ProviderGoogle].ErrorCount)
	assert.True(t, m.ProviderStatus()[types.ProviderGoogle].Available)
}

func TestManager_Search_NoProviders(t *testing.T) {
	m := newTestManager(t, nil)

	resp := m.Search(context.Background(), "cafeteria artesanal", 20, nil, "")
	require.NotNil(t, resp)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	assert.Equal(t, 0, resp.Statistics.ProvidersUsed)
	assert.Equal(t, 0, resp.Statistics.TotalResults)
}

func TestManager_Search_InvalidQuery(t *testing.T) {
	p := newFake(types.ProviderGoogle, "https://x.com")
	m := newTestManager(t, nil, p)

	resp := m.Search(context.Background(), "   ", 20, nil, "")
	assert.Empty(t, resp.Results)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestManager_Search_Deadline(t *testing.T) {
	slow := newFake(types.ProviderGoogle)
	slow.block = true
	fast := newFake(types.ProviderBing, "https://fast.example.com")

	m := newTestManager(t, &Config{Timeout: 100 * time.Millisecond}, slow, fast)

	start := time.Now()
	resp := m.Search(context.Background(), "q", 10, nil, "")
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Len(t, resp.Results, 1)
	assert.Equal(t, []types.ProviderID{types.ProviderGoogle}, resp.Statistics.ProviderErrors)
	assert.Equal(t, 1, m.ProviderStatus()[types.ProviderGoogle].ErrorCount)
}

func TestManager_Search_CallerCancelNotCounted(t *testing.T) {
	slow := newFake(types.ProviderGoogle)
	slow.block = true
	m := newTestManager(t, nil, slow)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	resp := m.Search(ctx, "q", 10, nil, "")
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, m.ProviderStatus()[types.ProviderGoogle].ErrorCount)
}

func TestManager_Search_PanicIsolated(t *testing.T) {
	bad := newFake(types.ProviderDuckDuckGo)
	bad.panicMsg = "selector exploded"
	good := newFake(types.ProviderGoogle, "https://good.example.com")

	m := newTestManager(t, nil, bad, good)

	var resp *UnifiedSearchResponse
	assert.NotPanics(t, func() {
		resp = m.Search(context.Background(), "q", 10, nil, "")
	})
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, []types.ProviderID{types.ProviderDuckDuckGo}, resp.Statistics.ProviderErrors)
	assert.Equal(t, 1, m.ProviderStatus()[types.ProviderDuckDuckGo].ErrorCount)
}

func TestManager_Search_PlainErrorWrapped(t *testing.T) {
	p := newFake(types.ProviderExa)
	p.err = errors.New("dial tcp: refused")
	m := newTestManager(t, nil, p)

	resp := m.Search(context.Background(), "q", 10, nil, "")
	assert.Equal(t, []types.ProviderID{types.ProviderExa}, resp.Statistics.ProviderErrors)
}

func TestManager_Search_ManyProvidersBoundedWorkers(t *testing.T) {
	ids := []types.ProviderID{"p1", "p2", "p3", "p4", "p5", "p6", "p7"}
	fakes := make([]*fakeProvider, len(ids))
	for i, id := range ids {
		fakes[i] = newFake(id, fmt.Sprintf("https://%s.example.com", id))
	}
	m := newTestManager(t, &Config{Workers: 2}, fakes...)

	resp := m.Search(context.Background(), "q", 7, nil, "")
	assert.Len(t, resp.Results, 7)
	assert.Equal(t, 7, resp.Statistics.ProvidersUsed)
}

func TestManager_ResetUnknown(t *testing.T) {
	m := newTestManager(t, nil)
	assert.ErrorIs(t, m.ResetProvider("nope"), types.ErrProviderNotFound)
}
