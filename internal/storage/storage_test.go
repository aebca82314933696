package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/harrylevesque/starseeker/internal/kvstore"
)

func newTestStore() (*Store, *kvstore.MemoryStore) {
	kv := kvstore.NewMemoryStore()
	return New(kv, nil), kv
}

func TestEmptyStoreReturnsEmptyLists(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	favs, err := s.GetFavourites(ctx)
	if err != nil || favs == nil || len(favs) != 0 {
		t.Fatalf("GetFavourites() = %#v, %v", favs, err)
	}
	routes, err := s.GetRecentRoutes(ctx)
	if err != nil || routes == nil || len(routes) != 0 {
		t.Fatalf("GetRecentRoutes() = %#v, %v", routes, err)
	}
}

func TestToggleFavourite(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	if err := s.SetFavourites(ctx, []string{"A", "B"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ToggleFavourite(ctx, "A")
	if err != nil {
		t.Fatalf("ToggleFavourite() failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"B"}) {
		t.Fatalf("after first toggle = %v, want [B]", got)
	}

	got, err = s.ToggleFavourite(ctx, "A")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"B", "A"}) {
		t.Fatalf("after second toggle = %v, want [B A]", got)
	}

	stored, _ := s.GetFavourites(ctx)
	if !reflect.DeepEqual(stored, got) {
		t.Fatalf("stored %v, returned %v", stored, got)
	}
}

func TestToggleFavouriteTwiceRestoresList(t *testing.T) {
	ctx := context.Background()
	start := []string{"SOL", "PRX", "RAN"}

	// An absent code is appended then removed; the last code is removed then re-appended.
	for _, code := range []string{"NEW", "RAN"} {
		s, _ := newTestStore()
		_ = s.SetFavourites(ctx, start)
		if _, err := s.ToggleFavourite(ctx, code); err != nil {
			t.Fatal(err)
		}
		got, err := s.ToggleFavourite(ctx, code)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, start) {
			t.Fatalf("toggle %s twice: got %v, want %v", code, got, start)
		}
	}
}

func TestIsFavourite(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	_, _ = s.ToggleFavourite(ctx, "SOL")
	if ok, err := s.IsFavourite(ctx, "SOL"); err != nil || !ok {
		t.Fatalf("IsFavourite(SOL) = %v, %v", ok, err)
	}
	if ok, _ := s.IsFavourite(ctx, "RAN"); ok {
		t.Fatalf("IsFavourite(RAN) = true")
	}
}

func TestPushRecentRouteCapsHistory(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	for i := 1; i <= MaxRecentRoutes+1; i++ {
		cost := float64(i)
		err := s.PushRecentRoute(ctx, RecentRoute{
			From:      fmt.Sprintf("F%d", i),
			To:        "SOL",
			SavedAt:   int64(i),
			TotalCost: &cost,
		})
		if err != nil {
			t.Fatalf("PushRecentRoute(%d) failed: %v", i, err)
		}
	}

	routes, err := s.GetRecentRoutes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != MaxRecentRoutes {
		t.Fatalf("len = %d, want %d", len(routes), MaxRecentRoutes)
	}
	if routes[0].From != "F26" {
		t.Fatalf("newest entry = %s, want F26", routes[0].From)
	}
	if routes[len(routes)-1].From != "F2" {
		t.Fatalf("oldest kept entry = %s, want F2", routes[len(routes)-1].From)
	}
}

func TestRecentRouteJSONShape(t *testing.T) {
	s, kv := newTestStore()
	ctx := context.Background()
	_ = s.PushRecentRoute(ctx, RecentRoute{From: "SOL", To: "RAN", SavedAt: 1700000000000})
	cost := 12.5
	_ = s.PushRecentRoute(ctx, RecentRoute{From: "RAN", To: "SOL", SavedAt: 1700000000001, TotalCost: &cost})

	raw, _, _ := kv.GetItem(ctx, KeyRecentRoutes)
	want := `[{"from":"RAN","to":"SOL","savedAt":1700000000001,"totalCost":12.5},{"from":"SOL","to":"RAN","savedAt":1700000000000}]`
	if raw != want {
		t.Fatalf("stored %s\nwant   %s", raw, want)
	}
}

func TestCorruptValuePropagates(t *testing.T) {
	s, kv := newTestStore()
	ctx := context.Background()
	_ = kv.SetItem(ctx, KeyFavGates, "not json")

	if _, err := s.GetFavourites(ctx); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("GetFavourites() err = %v, want ErrCorrupt", err)
	}
	if _, err := s.ToggleFavourite(ctx, "SOL"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("ToggleFavourite() err = %v, want ErrCorrupt", err)
	}
	raw, _, _ := kv.GetItem(ctx, KeyFavGates)
	if raw != "not json" {
		t.Fatalf("corrupt value was overwritten: %q", raw)
	}

	// Overwriting explicitly recovers.
	if err := s.SetFavourites(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if favs, err := s.GetFavourites(ctx); err != nil || len(favs) != 0 {
		t.Fatalf("after reset = %v, %v", favs, err)
	}
}

type failingKV struct{ kvstore.Store }

var errDisk = errors.New("disk on fire")

func (failingKV) GetItem(context.Context, string) (string, bool, error) { return "", false, errDisk }
func (failingKV) SetItem(context.Context, string, string) error         { return errDisk }
func (failingKV) RemoveItem(context.Context, string) error              { return errDisk }

func TestStorageErrorsPropagate(t *testing.T) {
	s := New(failingKV{}, nil)
	ctx := context.Background()
	if _, err := s.GetFavourites(ctx); !errors.Is(err, errDisk) {
		t.Fatalf("GetFavourites() err = %v", err)
	}
	if err := s.PushRecentRoute(ctx, RecentRoute{From: "A", To: "B"}); !errors.Is(err, errDisk) {
		t.Fatalf("PushRecentRoute() err = %v", err)
	}
	if err := s.SetFavourites(ctx, []string{"A"}); !errors.Is(err, errDisk) {
		t.Fatalf("SetFavourites() err = %v", err)
	}
}

func TestConcurrentTogglesDoNotLoseUpdates(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.ToggleFavourite(ctx, fmt.Sprintf("G%02d", i)); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	favs, _ := s.GetFavourites(ctx)
	if len(favs) != 20 {
		t.Fatalf("len(favs) = %d, want 20", len(favs))
	}
}

func TestClearRecentRoutes(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	_ = s.PushRecentRoute(ctx, RecentRoute{From: "A", To: "B"})
	if err := s.ClearRecentRoutes(ctx); err != nil {
		t.Fatal(err)
	}
	if routes, _ := s.GetRecentRoutes(ctx); len(routes) != 0 {
		t.Fatalf("routes after clear = %v", routes)
	}
}
