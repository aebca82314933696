package query

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harrylevesque/starseeker/internal/kvstore"
)

// StorageKey is the key the cache is persisted under.
const StorageKey = "query_cache"

type persistedEntry struct {
	Value     json.RawMessage `json:"value"`
	FetchedAt time.Time       `json:"fetchedAt"`
	UsedAt    time.Time       `json:"usedAt"`
	Stale     bool            `json:"stale,omitempty"`
}

// Save writes every entry to kv so a later process can serve it offline.
// Entries whose values cannot be encoded are skipped.
func (c *Cache) Save(ctx context.Context, kv kvstore.Store) error {
	c.mu.Lock()
	out := make(map[string]persistedEntry, len(c.entries))
	for key, e := range c.entries {
		raw, ok := e.value.(json.RawMessage)
		if !ok {
			var err error
			if raw, err = json.Marshal(e.value); err != nil {
				c.opts.Log.Warnf("query %s not persisted: %v", key, err)
				continue
			}
		}
		out[key] = persistedEntry{Value: raw, FetchedAt: e.fetchedAt, UsedAt: e.usedAt, Stale: e.stale}
	}
	c.mu.Unlock()

	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if err := kv.SetItem(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("save query cache: %w", err)
	}
	return nil
}

// Load restores entries saved by Save, skipping keys already cached and
// entries unused for longer than CacheTime.
func (c *Cache) Load(ctx context.Context, kv kvstore.Store) error {
	raw, ok, err := kv.GetItem(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("load query cache: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}
	var in map[string]persistedEntry
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return fmt.Errorf("load query cache: %w", err)
	}

	now := c.opts.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, p := range in {
		if _, exists := c.entries[key]; exists {
			continue
		}
		if c.opts.CacheTime > 0 && now.Sub(p.UsedAt) >= c.opts.CacheTime {
			continue
		}
		c.entries[key] = &entry{value: p.Value, fetchedAt: p.FetchedAt, usedAt: p.UsedAt, stale: p.Stale}
	}
	return nil
}
