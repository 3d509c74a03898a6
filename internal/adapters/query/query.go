// Package query keeps cached, asynchronously fetched query results and hands
// out snapshots of their lifecycle (loading, success, error).
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"accountmeta/internal/adapters/logger"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is the observed state of a query at one point in time.
// Data survives a failed refetch, so an error snapshot may carry data.
type Snapshot[T any] struct {
	Status     Status
	Data       T
	Err        error
	UpdatedAt  time.Time
	IsFetching bool
}

func (s Snapshot[T]) IsLoading() bool {
	return s.Status == StatusLoading
}

func (s Snapshot[T]) IsError() bool {
	return s.Status == StatusError
}

type Options struct {
	Enabled bool
}

type Config struct {
	// StaleTime is how long a successful result is served without a refetch
	StaleTime time.Duration
	// ErrorRetryAfter is how long a failure is served before the next attempt
	ErrorRetryAfter time.Duration
	// FetchTimeout bounds a single fetch
	FetchTimeout time.Duration
	// GCTime drops settled entries not refreshed for this long
	GCTime time.Duration
}

func DefaultConfig() Config {
	return Config{
		StaleTime:       5 * time.Minute,
		ErrorRetryAfter: 30 * time.Second,
		FetchTimeout:    10 * time.Second,
		GCTime:          30 * time.Minute,
	}
}

type Fetcher[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	snapshot    Snapshot[T]
	fetching    bool
	invalidated bool
	// done is closed when the fetch in flight settles
	done chan struct{}
}

// Client caches query results of type T by key
type Client[T any] struct {
	name   string
	cfg    Config
	logger *logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry[T]
	lastSweep time.Time
	wg        sync.WaitGroup
}

func NewClient[T any](name string, cfg Config, log *logger.Logger) *Client[T] {
	if log == nil {
		log = logger.NewNopLogger()
	}
	def := DefaultConfig()
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.GCTime <= 0 {
		cfg.GCTime = def.GCTime
	}
	return &Client[T]{
		name:    name,
		cfg:     cfg,
		logger:  log.Named("query").WithFields(zap.String("client", name)),
		now:     time.Now,
		entries: make(map[string]*entry[T]),
	}
}

// Key joins parts into a cache key
func Key(parts ...any) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ":")
}

// Query returns the current snapshot for key and starts a background fetch
// when there is no result yet or the result is past its freshness window.
// A disabled query never fetches and returns an idle snapshot.
func (c *Client[T]) Query(ctx context.Context, key string, opts Options, fetch Fetcher[T]) Snapshot[T] {
	if !opts.Enabled {
		return Snapshot[T]{Status: StatusIdle}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepLocked(now)

	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{snapshot: Snapshot[T]{Status: StatusLoading}}
		c.entries[key] = e
		c.startLocked(ctx, key, e, fetch)
		return c.observeLocked(e)
	}

	if !e.fetching {
		switch e.snapshot.Status {
		case StatusSuccess:
			if e.invalidated || now.Sub(e.snapshot.UpdatedAt) >= c.cfg.StaleTime {
				c.startLocked(ctx, key, e, fetch)
			}
		case StatusError:
			if e.invalidated || now.Sub(e.snapshot.UpdatedAt) >= c.cfg.ErrorRetryAfter {
				c.startLocked(ctx, key, e, fetch)
			}
		}
	}

	return c.observeLocked(e)
}

// Peek returns the snapshot for key without triggering a fetch
func (c *Client[T]) Peek(key string) (Snapshot[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Snapshot[T]{}, false
	}
	return c.observeLocked(e), true
}

// Invalidate marks every entry whose key has prefix as stale
func (c *Client[T]) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if strings.HasPrefix(k, prefix) && e.snapshot.Status != StatusLoading {
			e.invalidated = true
			n++
		}
	}
	return n
}

// WaitKey blocks until the fetch in flight for key has settled or ctx is
// done. It returns at once when key is unknown or not fetching.
func (c *Client[T]) WaitKey(ctx context.Context, key string) error {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || !e.fetching {
		c.mu.Unlock()
		return nil
	}
	done := e.done
	c.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for all background fetches to return
func (c *Client[T]) Close() {
	c.wg.Wait()
}

func (c *Client[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Client[T]) observeLocked(e *entry[T]) Snapshot[T] {
	s := e.snapshot
	s.IsFetching = e.fetching
	return s
}

func (c *Client[T]) startLocked(ctx context.Context, key string, e *entry[T], fetch Fetcher[T]) {
	e.fetching = true
	e.invalidated = false
	e.done = make(chan struct{})

	// The fetch outlives the observing request.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FetchTimeout)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		v, err := fetch(fctx)
		c.settle(key, v, err)
	}()
}

func (c *Client[T]) settle(key string, v T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{}
		c.entries[key] = e
	}
	e.fetching = false

	if err != nil {
		c.logger.Warn("Query failed", zap.String("key", key), zap.Error(err))
		e.snapshot.Status = StatusError
		e.snapshot.Err = err
		e.snapshot.UpdatedAt = now
	} else {
		c.logger.Debug("Query settled", zap.String("key", key))
		e.snapshot = Snapshot[T]{
			Status:    StatusSuccess,
			Data:      v,
			UpdatedAt: now,
		}
	}

	if e.done != nil {
		close(e.done)
		e.done = nil
	}
}

func (c *Client[T]) sweepLocked(now time.Time) {
	if now.Sub(c.lastSweep) < c.cfg.GCTime {
		return
	}
	c.lastSweep = now

	for k, e := range c.entries {
		if !e.fetching && now.Sub(e.snapshot.UpdatedAt) >= c.cfg.GCTime {
			delete(c.entries, k)
		}
	}
}
