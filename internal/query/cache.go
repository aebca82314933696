// Package query caches API reads by key with stale-while-offline semantics.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/harrylevesque/starseeker/internal/utils"
)

// ErrOffline is returned when the device is offline and nothing is cached.
var ErrOffline = errors.New("offline and no cached data")

const maxBackoff = 30 * time.Second

type Options struct {
	// StaleTime is how long a result is served without refetching.
	StaleTime time.Duration
	// CacheTime is how long an unused entry survives before Collect drops it.
	CacheTime time.Duration
	// Retry is the number of extra attempts after a failed fetch.
	Retry int
	// RetryDelay is the first backoff; it doubles per attempt up to 30s.
	RetryDelay time.Duration
	// ShouldRetry filters retryable errors. Nil retries everything.
	ShouldRetry func(error) bool

	Now func() time.Time
	Log *utils.Logger
}

type entry struct {
	value     any
	fetchedAt time.Time
	usedAt    time.Time
	stale     bool
}

type Cache struct {
	opts Options

	mu      sync.Mutex
	entries map[string]*entry
	online  func() bool
}

func New(opts Options) *Cache {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{opts: opts, entries: map[string]*entry{}, online: func() bool { return true }}
}

// Connectivity is the part of connectivity.Monitor the cache depends on.
type Connectivity interface {
	Online() bool
	OnChange(func(bool))
}

// Watch gates fetches on m and marks every entry stale when m comes back
// online.
func (c *Cache) Watch(m Connectivity) {
	c.mu.Lock()
	c.online = m.Online
	c.mu.Unlock()
	m.OnChange(func(online bool) {
		if online {
			c.InvalidateAll()
		}
	})
}

// Get returns the cached value for key, calling fetch when there is none or
// it is stale. Offline, a cached value of any age is returned without calling
// fetch.
func Get[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	now := c.opts.Now()

	c.mu.Lock()
	e, ok := c.entries[key]
	var cached T
	if ok {
		cached, ok = resolve[T](e)
	}
	online := c.online()
	if ok {
		e.usedAt = now
	}
	fresh := ok && !e.stale && now.Sub(e.fetchedAt) < c.opts.StaleTime
	c.mu.Unlock()

	if ok && (fresh || !online) {
		return cached, nil
	}
	if !online {
		return zero, ErrOffline
	}

	v, err := fetchWithRetry(ctx, c, key, fetch)
	if err != nil {
		return zero, err
	}

	now = c.opts.Now()
	c.mu.Lock()
	c.entries[key] = &entry{value: v, fetchedAt: now, usedAt: now}
	c.mu.Unlock()
	return v, nil
}

// resolve returns e's value as T. Values loaded from storage arrive as raw
// JSON and are decoded on first use. Callers hold c.mu.
func resolve[T any](e *entry) (T, bool) {
	if v, ok := e.value.(T); ok {
		return v, true
	}
	var v T
	raw, ok := e.value.(json.RawMessage)
	if !ok || json.Unmarshal(raw, &v) != nil {
		return v, false
	}
	e.value = v
	return v, true
}

func fetchWithRetry[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	delay := c.opts.RetryDelay
	for attempt := 0; ; attempt++ {
		v, err := fetch(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= c.opts.Retry || (c.opts.ShouldRetry != nil && !c.opts.ShouldRetry(err)) {
			return v, err
		}
		c.opts.Log.Warnf("query %s failed (attempt %d), retrying in %s: %v", key, attempt+1, delay, err)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return v, ctx.Err()
		case <-t.C:
		}
		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
}

// Set stores v under key as a fresh result.
func (c *Cache) Set(key string, v any) {
	now := c.opts.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: v, fetchedAt: now, usedAt: now}
}

// Invalidate marks key stale so the next online Get refetches it.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.stale = true
	}
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.stale = true
	}
}

// Collect drops entries not read for CacheTime and returns how many it removed.
func (c *Cache) Collect() int {
	now := c.opts.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if now.Sub(e.usedAt) >= c.opts.CacheTime {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// RunCollector calls Collect every interval until stop is closed.
func (c *Cache) RunCollector(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := c.Collect(); n > 0 {
				c.opts.Log.Infof("query cache collected %d entries", n)
			}
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
