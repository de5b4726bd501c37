// Package extractor turns a result URL into readable text. HTML pages go
// through an ordered chain of extraction methods with an aggressive
// fallback, PDFs through a chain of PDF text extractors.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/pkg/metrics"
	webhttp "github.com/lk2023060901/market-research-backend/internal/websearch/http"
	"github.com/lk2023060901/market-research-backend/internal/websearch/urlresolver"
)

// Failure messages reported in Metadata.Error
const (
	ErrURLUnresolved = "url could not be resolved"
	ErrURLUnsafe     = "url is not safe to fetch"
	ErrAllFailed     = "all extractors failed"
	ErrPDFFailed     = "pdf extraction failed"
)

const defaultMaxBodySize = 10 << 20

// Config controls downloads and acceptance thresholds
type Config struct {
	Timeout           time.Duration `mapstructure:"timeout"`             // per download attempt
	MinContentLength  int           `mapstructure:"min_content_length"`  // chain methods must exceed it
	MinFallbackLength int           `mapstructure:"min_fallback_length"` // aggressive pass must exceed it
	Attempts          int           `mapstructure:"attempts"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"` // doubled after every failed attempt
	MaxBodySize       int64         `mapstructure:"max_body_size"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	BatchDelay        time.Duration `mapstructure:"batch_delay"`
	AllowPrivate      bool          `mapstructure:"allow_private"` // permit loopback hosts
}

// DefaultConfig returns the default extractor configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:           30 * time.Second,
		MinContentLength:  100,
		MinFallbackLength: 50,
		Attempts:          3,
		RetryBackoff:      time.Second,
		MaxBodySize:       defaultMaxBodySize,
		CacheTTL:          24 * time.Hour,
		BatchDelay:        500 * time.Millisecond,
	}
}

// Metadata describes how a result was obtained
type Metadata struct {
	URL             string   `json:"url"`
	ExtractorsTried []string `json:"extractors_tried"`
	ExtractorUsed   string   `json:"extractor_used"`
	Error           string   `json:"error"`
	ContentLength   int      `json:"content_length"`
	ContentType     string   `json:"content_type,omitempty"`
	Title           string   `json:"title,omitempty"`
	FromCache       bool     `json:"from_cache"`
}

// MarshalJSON renders an empty ExtractorUsed or Error as null.
func (m Metadata) MarshalJSON() ([]byte, error) {
	type alias Metadata
	return json.Marshal(struct {
		alias
		ExtractorUsed *string `json:"extractor_used"`
		Error         *string `json:"error"`
	}{
		alias:         alias(m),
		ExtractorUsed: nullable(m.ExtractorUsed),
		Error:         nullable(m.Error),
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Result is the outcome of one extraction. Content is empty exactly when
// Metadata.Error is set.
type Result struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Succeeded reports whether content was extracted
func (r *Result) Succeeded() bool {
	return r != nil && r.Metadata.Error == "" && r.Content != ""
}

// Stats lists the configured extraction methods
type Stats struct {
	HTMLExtractors  []string `json:"html_extractors"`
	PDFExtractors   []string `json:"pdf_extractors"`
	TotalExtractors int      `json:"total_extractors"`
	CacheEnabled    bool     `json:"cache_enabled"`
}

// Option customises an Extractor
type Option func(*Extractor)

// WithLogger sets the extractor logger
func WithLogger(l *logger.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithMetrics sets the metrics collector
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Extractor) { e.metrics = c }
}

// WithCache enables result caching
func WithCache(c Cache) Option {
	return func(e *Extractor) { e.cache = c }
}

// WithHTTPClient replaces the download client
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) { e.client = c }
}

// WithHTMLMethods replaces the HTML chain
func WithHTMLMethods(methods ...HTMLMethod) Option {
	return func(e *Extractor) { e.html = methods }
}

// WithPDFMethods replaces the PDF chain
func WithPDFMethods(methods ...PDFMethod) Option {
	return func(e *Extractor) { e.pdf = methods }
}

// Extractor is the content extractor
type Extractor struct {
	config     *Config
	client     *http.Client
	downloader *Downloader
	html       []HTMLMethod
	pdf        []PDFMethod
	cache      Cache
	logger     *logger.Logger
	metrics    *metrics.Collector
}

// New creates an extractor with the default method chains
func New(cfg *Config, opts ...Option) *Extractor {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = def.MinContentLength
	}
	if cfg.MinFallbackLength <= 0 {
		cfg.MinFallbackLength = def.MinFallbackLength
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = def.Attempts
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = def.BatchDelay
	}

	e := &Extractor{
		config: cfg,
		html:   DefaultHTMLMethods(),
		pdf:    DefaultPDFMethods(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logger.OrGlobal(e.logger).Named("extractor")
	if e.client == nil {
		e.client = webhttp.NewHTTPClient(cfg.Timeout)
	}
	e.downloader = NewDownloader(e.client, cfg.Attempts, cfg.RetryBackoff, cfg.MaxBodySize, e.logger)
	return e
}

// Config returns the effective configuration
func (e *Extractor) Config() *Config {
	return e.config
}

// Extract downloads rawURL and returns its readable text. Expected failures
// are reported in Metadata.Error, never as a Go error. timeout <= 0 uses
// the configured per-attempt timeout.
func (e *Extractor) Extract(ctx context.Context, rawURL string, timeout time.Duration) *Result {
	if timeout <= 0 {
		timeout = e.config.Timeout
	}
	log := e.logger.WithContext(ctx)

	resolved, ok := urlresolver.Resolve(rawURL)
	if !ok {
		log.Warn("url could not be resolved", zap.String("url", rawURL))
		return failure(Metadata{URL: rawURL, ExtractorsTried: []string{}}, ErrURLUnresolved)
	}
	if !e.config.AllowPrivate && !urlresolver.IsSafe(resolved) {
		log.Warn("refusing unsafe url", zap.String("url", resolved))
		return failure(Metadata{URL: resolved, ExtractorsTried: []string{}}, ErrURLUnsafe)
	}

	key := CacheKey(resolved)
	if cached := e.lookup(ctx, key); cached != nil {
		return cached
	}

	start := time.Now()
	var result *Result
	if IsPDF(resolved) {
		result = e.extractPDF(ctx, resolved, timeout)
	} else {
		result = e.extractHTML(ctx, resolved, timeout)
	}

	if result.Succeeded() {
		log.Info("content extracted",
			zap.String("url", resolved),
			zap.String("extractor", result.Metadata.ExtractorUsed),
			zap.Int("length", result.Metadata.ContentLength),
			zap.Duration("duration", time.Since(start)),
		)
		e.store(ctx, key, result)
	} else {
		log.Warn("content extraction failed",
			zap.String("url", resolved),
			zap.Strings("tried", result.Metadata.ExtractorsTried),
			zap.String("error", result.Metadata.Error),
		)
	}
	return result
}

// ExtractBatch extracts urls one by one, waiting delay between requests.
// Results keep the input order; URLs not reached before ctx is done get a
// result carrying the context error.
func (e *Extractor) ExtractBatch(ctx context.Context, urls []string, delay time.Duration) []*Result {
	if delay < 0 {
		delay = e.config.BatchDelay
	}

	results := make([]*Result, len(urls))
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			results[i] = failure(Metadata{URL: u, ExtractorsTried: []string{}}, err.Error())
			continue
		}
		if i > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				results[i] = failure(Metadata{URL: u, ExtractorsTried: []string{}}, err.Error())
				continue
			}
		}
		results[i] = e.Extract(ctx, u, 0)
	}
	return results
}

// Stats lists the configured methods
func (e *Extractor) Stats() Stats {
	s := Stats{
		HTMLExtractors: make([]string, 0, len(e.html)+1),
		PDFExtractors:  make([]string, 0, len(e.pdf)),
		CacheEnabled:   e.cache != nil,
	}
	for _, m := range e.html {
		s.HTMLExtractors = append(s.HTMLExtractors, m.Name())
	}
	s.HTMLExtractors = append(s.HTMLExtractors, AggressiveName)
	for _, m := range e.pdf {
		s.PDFExtractors = append(s.PDFExtractors, m.Name())
	}
	s.TotalExtractors = len(s.HTMLExtractors) + len(s.PDFExtractors)
	return s
}

func (e *Extractor) extractHTML(ctx context.Context, target string, timeout time.Duration) *Result {
	meta := Metadata{URL: target, ExtractorsTried: []string{}}

	dl, err := e.downloader.Fetch(ctx, target, timeout)
	if err != nil {
		return failure(meta, fmt.Sprintf("download failed: %v", err))
	}
	meta.ContentType = dl.ContentType

	pageURL, err := url.Parse(dl.FinalURL)
	if err != nil {
		pageURL, _ = url.Parse(target)
	}
	page := &Page{URL: pageURL, HTML: dl.Text()}
	if isMarkdown(dl.ContentType, pageURL) {
		if rendered, err := renderMarkdown(page.HTML); err == nil {
			page.HTML = rendered
		}
	}
	meta.Title = pageTitle(page.HTML)

	for _, m := range e.html {
		meta.ExtractorsTried = append(meta.ExtractorsTried, m.Name())
		content, err := guard(m.Name(), func() (string, error) { return m.Extract(page) })
		if e.accept(m.Name(), content, err, e.config.MinContentLength) {
			return success(meta, m.Name(), content)
		}
	}

	meta.ExtractorsTried = append(meta.ExtractorsTried, AggressiveName)
	content, err := guard(AggressiveName, func() (string, error) {
		return aggressiveText(page.HTML, e.config.MinContentLength)
	})
	if e.accept(AggressiveName, content, err, e.config.MinFallbackLength) {
		return success(meta, AggressiveName, content)
	}
	return failure(meta, ErrAllFailed)
}

func (e *Extractor) extractPDF(ctx context.Context, target string, timeout time.Duration) *Result {
	meta := Metadata{URL: target, ExtractorsTried: []string{}}

	dl, err := e.downloader.Fetch(ctx, target, timeout)
	if err != nil {
		return failure(meta, fmt.Sprintf("download failed: %v", err))
	}
	meta.ContentType = dl.ContentType

	for _, m := range e.pdf {
		meta.ExtractorsTried = append(meta.ExtractorsTried, m.Name())
		content, err := guard(m.Name(), func() (string, error) { return m.Extract(dl.Body) })
		if e.accept(m.Name(), content, err, e.config.MinContentLength) {
			return success(meta, m.Name(), content)
		}
	}
	return failure(meta, ErrPDFFailed)
}

// accept reports whether a method produced enough text and records the attempt.
func (e *Extractor) accept(name, content string, err error, threshold int) bool {
	switch {
	case err != nil:
		e.logger.Debug("extractor failed", zap.String("extractor", name), zap.Error(err))
		e.metrics.ExtractionAttempt(name, metrics.OutcomeError)
		return false
	case utf8.RuneCountInString(strings.TrimSpace(content)) <= threshold:
		e.logger.Debug("extractor returned too little text",
			zap.String("extractor", name),
			zap.Int("length", utf8.RuneCountInString(strings.TrimSpace(content))),
		)
		e.metrics.ExtractionAttempt(name, metrics.OutcomeEmpty)
		return false
	default:
		e.metrics.ExtractionAttempt(name, metrics.OutcomeSuccess)
		return true
	}
}

// Invalidate evicts the cached result of rawURL so the next Extract
// downloads the page again. It is a no-op without a cache.
func (e *Extractor) Invalidate(ctx context.Context, rawURL string) error {
	if e.cache == nil {
		return nil
	}
	resolved, ok := urlresolver.Resolve(rawURL)
	if !ok {
		return nil
	}
	key := CacheKey(resolved)
	if err := e.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("evict %s: %w", key, err)
	}
	return nil
}

func (e *Extractor) lookup(ctx context.Context, key string) *Result {
	if e.cache == nil {
		return nil
	}
	cached, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("extraction cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok || !cached.Succeeded() {
		return nil
	}
	cached.Metadata.FromCache = true
	return cached
}

func (e *Extractor) store(ctx context.Context, key string, result *Result) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, key, result, e.config.CacheTTL); err != nil {
		e.logger.Warn("extraction cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// guard turns a panic inside a third-party parser into an error.
func guard(name string, fn func() (string, error)) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			content, err = "", fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn()
}

func success(meta Metadata, used, content string) *Result {
	content = strings.TrimSpace(content)
	meta.ExtractorUsed = used
	meta.ContentLength = utf8.RuneCountInString(content)
	return &Result{Content: content, Metadata: meta}
}

func failure(meta Metadata, msg string) *Result {
	meta.ExtractorUsed = ""
	meta.Error = msg
	meta.ContentLength = 0
	return &Result{Metadata: meta}
}
