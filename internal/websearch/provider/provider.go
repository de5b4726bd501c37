package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/pkg/metrics"
	webhttp "github.com/lk2023060901/market-research-backend/internal/websearch/http"
	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

// maxBodySize caps how much of a provider response is read.
const maxBodySize = 4 << 20

// defaultMaxResults is used when a request does not set MaxResults.
const defaultMaxResults = 10

// Provider defines the interface for search providers
type Provider interface {
	// Search executes exactly one outbound call. Failures come back as
	// *types.ProviderError; an empty result set is not a failure.
	Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error)

	// GetID returns the provider ID
	GetID() types.ProviderID

	// GetName returns the provider name
	GetName() string

	// Category reports whether the provider is an API or a scraper
	Category() types.Category

	// Validate validates the provider configuration
	Validate() error

	// IsAvailable checks if the provider is available
	IsAvailable(ctx context.Context) bool
}

// Option customises a BaseProvider
type Option func(*BaseProvider)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(b *BaseProvider) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// WithLogger sets the provider logger
func WithLogger(l *logger.Logger) Option {
	return func(b *BaseProvider) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(m *metrics.Collector) Option {
	return func(b *BaseProvider) {
		b.metrics = m
	}
}

// WithClock overrides the clock used for the year hint
func WithClock(now func() time.Time) Option {
	return func(b *BaseProvider) {
		if now != nil {
			b.now = now
		}
	}
}

// BaseProvider provides common functionality for all providers
type BaseProvider struct {
	config     *types.ProviderConfig
	httpClient *http.Client
	logger     *logger.Logger
	metrics    *metrics.Collector
	now        func() time.Time

	mu       sync.Mutex
	apiKeys  []string // comma-separated keys rotate per call
	keyIndex int
}

// NewBaseProvider creates a new base provider
func NewBaseProvider(config *types.ProviderConfig, opts ...Option) *BaseProvider {
	var apiKeys []string
	for _, k := range strings.Split(config.APIKey, ",") {
		if k = strings.TrimSpace(k); k != "" {
			apiKeys = append(apiKeys, k)
		}
	}

	b := &BaseProvider{
		config:     config,
		httpClient: webhttp.NewHTTPClient(config.RequestTimeout()),
		now:        time.Now,
		apiKeys:    apiKeys,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logger.OrGlobal(b.logger).With(zap.String("provider", string(config.ID)))
	return b
}

// GetID returns the provider ID
func (b *BaseProvider) GetID() types.ProviderID {
	return b.config.ID
}

// GetName returns the provider name
func (b *BaseProvider) GetName() string {
	return b.config.Name
}

// Category reports the adapter category of this provider
func (b *BaseProvider) Category() types.Category {
	return types.CategoryOf(b.config.ID)
}

// GetAPIKey returns the next API key in rotation
func (b *BaseProvider) GetAPIKey() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.apiKeys) == 0 {
		return ""
	}
	key := b.apiKeys[b.keyIndex]
	b.keyIndex = (b.keyIndex + 1) % len(b.apiKeys)
	return key
}

// Query returns the query the provider should send, with locale hints
// unless the request asked for the raw query.
func (b *BaseProvider) Query(req *types.SearchRequest) string {
	q := strings.TrimSpace(req.Query)
	if req.Raw {
		return q
	}
	return EnhanceQuery(q, b.now())
}

// Limit returns the number of results to ask for, bounded by ceiling when > 0
func (b *BaseProvider) Limit(req *types.SearchRequest, ceiling int) int {
	n := req.MaxResults
	if n <= 0 {
		n = defaultMaxResults
	}
	if ceiling > 0 && n > ceiling {
		n = ceiling
	}
	return n
}

// JSONHeaders returns headers for JSON API calls
func (b *BaseProvider) JSONHeaders() map[string]string {
	return map[string]string{
		"Content-Type":    "application/json",
		"Accept":          "application/json",
		"Accept-Language": "pt-BR,pt;q=0.9,en;q=0.8",
		"User-Agent":      "market-research-backend/1.0",
	}
}

// DoRequest performs a single HTTP call and returns the body of a 200
// response. Transport failures, deadline expiry and non-200 statuses are
// returned as *types.ProviderError.
func (b *BaseProvider) DoRequest(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := b.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		cause := err
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
			cause = fmt.Errorf("%w: %v", types.ErrProviderTimeout, err)
		}
		return nil, b.Error("REQUEST_FAILED", "failed to execute request", cause)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, b.Error("READ_FAILED", "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewHTTPStatusError(b.config.ID, resp.StatusCode, string(body))
	}
	return body, nil
}

// Error builds a ProviderError tagged with this provider
func (b *BaseProvider) Error(code, message string, err error) *types.ProviderError {
	return &types.ProviderError{
		Provider: b.config.ID,
		Code:     code,
		Message:  message,
		Err:      err,
	}
}

// Response wraps results into a SearchResponse
func (b *BaseProvider) Response(query string, results []*types.SearchResult, start time.Time) *types.SearchResponse {
	if results == nil {
		results = []*types.SearchResult{}
	}
	for _, r := range results {
		r.Source = b.config.ID
	}
	return &types.SearchResponse{
		Query:      query,
		Results:    results,
		TotalCount: len(results),
		Took:       time.Since(start).Milliseconds(),
		Provider:   b.config.ID,
	}
}

// Logger returns the provider-scoped logger
func (b *BaseProvider) Logger() *logger.Logger {
	return b.logger
}

// Validate validates the provider configuration
func (b *BaseProvider) Validate() error {
	return b.config.Validate()
}

// IsAvailable reports whether the provider can be called. Credentials are
// the only thing checked; health is tracked by the registry.
func (b *BaseProvider) IsAvailable(ctx context.Context) bool {
	return !types.RequiresAPIKey(b.config.ID) || len(b.apiKeys) > 0
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
