package query

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrylevesque/starseeker/internal/kvstore"
)

type gate struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func mustNotFetch(t *testing.T) func(context.Context) ([]gate, error) {
	return func(context.Context) ([]gate, error) {
		t.Errorf("fetch called")
		return nil, errors.New("unexpected fetch")
	}
}

func seedAndSave(t *testing.T, clock *fakeTime, kv kvstore.Store) {
	t.Helper()
	c := newCache(clock)
	_, err := Get(context.Background(), c, "gates", func(context.Context) ([]gate, error) {
		return []gate{{Code: "SOL", Name: "Sol"}, {Code: "SIR", Name: "Sirius"}}, nil
	})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := c.Save(context.Background(), kv); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}

func TestSavedCacheServesNextProcessOffline(t *testing.T) {
	stores := map[string]kvstore.Store{
		"memory": kvstore.NewMemoryStore(),
		"file":   kvstore.NewFileStore(filepath.Join(t.TempDir(), "store.json")),
	}
	for name, kv := range stores {
		t.Run(name, func(t *testing.T) {
			clock := &fakeTime{now: time.Unix(0, 0)}
			seedAndSave(t, clock, kv)
			clock.Advance(10 * time.Minute)

			c := newCache(clock)
			if err := c.Load(context.Background(), kv); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			c.Watch(&fakeNet{online: false})

			gates, err := Get(context.Background(), c, "gates", mustNotFetch(t))
			if err != nil {
				t.Fatalf("offline Get failed: %v", err)
			}
			if len(gates) != 2 || gates[0].Code != "SOL" || gates[1].Name != "Sirius" {
				t.Fatalf("restored %+v", gates)
			}
		})
	}
}

func TestLoadedEntryKeepsFreshness(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	clock := &fakeTime{now: time.Unix(0, 0)}
	seedAndSave(t, clock, kv)

	c := newCache(clock)
	c.Load(context.Background(), kv)
	clock.Advance(10 * time.Second)
	if _, err := Get(context.Background(), c, "gates", mustNotFetch(t)); err != nil {
		t.Fatalf("fresh restored entry: %v", err)
	}

	clock.Advance(time.Minute)
	calls := 0
	Get(context.Background(), c, "gates", func(context.Context) ([]gate, error) {
		calls++
		return nil, nil
	})
	if calls != 1 {
		t.Fatalf("stale restored entry not refetched, calls=%d", calls)
	}
}

func TestLoadSkipsExpiredEntries(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	clock := &fakeTime{now: time.Unix(0, 0)}
	seedAndSave(t, clock, kv)
	clock.Advance(2 * time.Hour)

	c := newCache(clock)
	if err := c.Load(context.Background(), kv); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry restored")
	}
}

func TestLoadCorruptValue(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	kv.SetItem(context.Background(), StorageKey, "{not json")
	if err := New(Options{}).Load(context.Background(), kv); err == nil {
		t.Fatalf("expected error for corrupt cache")
	}
	if err := New(Options{}).Load(context.Background(), kvstore.NewMemoryStore()); err != nil {
		t.Fatalf("empty store: %v", err)
	}
}

func TestLoadedEntryWithWrongShapeIsRefetched(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	clock := &fakeTime{now: time.Unix(0, 0)}
	seedAndSave(t, clock, kv)

	c := newCache(clock)
	c.Load(context.Background(), kv)
	v, err := Get(context.Background(), c, "gates", func(context.Context) (int, error) { return 3, nil })
	if err != nil || v != 3 {
		t.Fatalf("Get = %d, %v", v, err)
	}
}
