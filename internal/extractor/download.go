package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	webhttp "github.com/lk2023060901/market-research-backend/internal/websearch/http"
)

// ErrUnexpectedStatus is returned for non-2xx responses
var ErrUnexpectedStatus = errors.New("unexpected status")

// Download is one fetched document
type Download struct {
	Body        []byte
	ContentType string
	FinalURL    string // after redirects
}

// Text returns the body decoded to UTF-8 using the declared or sniffed charset.
func (d *Download) Text() string {
	r, err := charset.NewReader(bytes.NewReader(d.Body), d.ContentType)
	if err != nil {
		return string(d.Body)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(d.Body)
	}
	return string(decoded)
}

// Downloader fetches documents with browser headers and retries failed
// attempts with exponential backoff.
type Downloader struct {
	client   *http.Client
	attempts int
	backoff  time.Duration
	maxBody  int64
	logger   *logger.Logger
}

// NewDownloader creates a downloader. attempts <= 0 means a single attempt.
func NewDownloader(client *http.Client, attempts int, backoff time.Duration, maxBody int64, log *logger.Logger) *Downloader {
	if attempts <= 0 {
		attempts = 1
	}
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}
	return &Downloader{
		client:   client,
		attempts: attempts,
		backoff:  backoff,
		maxBody:  maxBody,
		logger:   logger.OrGlobal(log),
	}
}

// Fetch downloads target. Each attempt gets its own timeout; between attempts
// the downloader waits backoff, 2*backoff, 4*backoff...
func (d *Downloader) Fetch(ctx context.Context, target string, timeout time.Duration) (*Download, error) {
	var lastErr error
	for attempt := 0; attempt < d.attempts; attempt++ {
		dl, err := d.fetchOnce(ctx, target, timeout)
		if err == nil {
			return dl, nil
		}
		lastErr = err

		d.logger.Warn("download attempt failed",
			zap.String("url", target),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		if attempt == d.attempts-1 {
			break
		}
		if err := sleepCtx(ctx, d.backoff<<attempt); err != nil {
			return nil, fmt.Errorf("download %s: %w", target, err)
		}
	}
	return nil, fmt.Errorf("download %s after %d attempts: %w", target, d.attempts, lastErr)
}

func (d *Downloader) fetchOnce(ctx context.Context, target string, timeout time.Duration) (*Download, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	webhttp.ApplyBrowserHeaders(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Download{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    final,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
