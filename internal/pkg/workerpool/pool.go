// Package workerpool runs short-lived tasks on a shared ants goroutine pool.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Config worker pool configuration
type Config struct {
	Size           int           `mapstructure:"size"`            // goroutines shared by all callers
	ExpiryDuration time.Duration `mapstructure:"expiry_duration"` // idle worker lifetime
	ReleaseTimeout time.Duration `mapstructure:"release_timeout"` // Close waits this long for running tasks
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Size:           32,
		ExpiryDuration: 10 * time.Second,
		ReleaseTimeout: 5 * time.Second,
	}
}

// Statistics is a snapshot of pool counters
type Statistics struct {
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Panicked  int64 `json:"panicked"`
	Running   int   `json:"running"`
	Capacity  int   `json:"capacity"`
}

// Pool wraps an ants pool with panic isolation and counters
type Pool struct {
	pool   *ants.Pool
	config *Config
	logger *logger.Logger

	submitted atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
}

// New creates a pool. A nil config uses DefaultConfig.
func New(config *Config, log *logger.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Size <= 0 {
		config.Size = DefaultConfig().Size
	}
	log = logger.OrGlobal(log).Named("workerpool")

	antsPool, err := ants.NewPool(config.Size,
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithPanicHandler(func(v any) {
			log.Error("worker panic escaped task wrapper", zap.Any("error", v))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	return &Pool{pool: antsPool, config: config, logger: log}, nil
}

// Submit runs task on the pool, blocking while every worker is busy.
// A panicking task is logged and counted; it never kills the worker.
func (p *Pool) Submit(task func()) error {
	if p.pool.IsClosed() {
		return ErrPoolClosed
	}
	p.submitted.Add(1)

	err := p.pool.Submit(func() {
		defer p.completed.Add(1)
		defer func() {
			if r := recover(); r != nil {
				p.panicked.Add(1)
				p.logger.Error("task panicked", zap.Any("panic", r), zap.Stack("stacktrace"))
			}
		}()
		task()
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}

// Stats returns a snapshot of the pool counters
func (p *Pool) Stats() Statistics {
	return Statistics{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
		Running:   p.pool.Running(),
		Capacity:  p.pool.Cap(),
	}
}

// Close stops accepting tasks and waits up to ReleaseTimeout for running ones
func (p *Pool) Close() error {
	timeout := p.config.ReleaseTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ReleaseTimeout
	}
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("release worker pool: %w", err)
	}
	return nil
}

// Group bounds how many tasks of one caller run at the same time on a
// shared pool.
type Group struct {
	pool *Pool
	sem  chan struct{}
	wg   sync.WaitGroup
}

// NewGroup returns a group allowing at most limit tasks in flight
func (p *Pool) NewGroup(limit int) *Group {
	if limit <= 0 {
		limit = 1
	}
	return &Group{pool: p, sem: make(chan struct{}, limit)}
}

// Go waits for a free slot and submits task. It returns ctx.Err() when the
// context ends before a slot frees up; task is not run in that case.
func (g *Group) Go(ctx context.Context, task func()) error {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	g.wg.Add(1)
	err := g.pool.Submit(func() {
		defer g.wg.Done()
		defer func() { <-g.sem }()
		task()
	})
	if err != nil {
		g.wg.Done()
		<-g.sem
	}
	return err
}

// Wait blocks until every submitted task returned
func (g *Group) Wait() {
	g.wg.Wait()
}
