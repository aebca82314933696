// Package storage keeps the user's favourite gates and recently computed
// routes on the device.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/harrylevesque/starseeker/internal/kvstore"
	"github.com/harrylevesque/starseeker/internal/utils"
)

const (
	KeyFavGates     = "fav_gates"
	KeyRecentRoutes = "recent_routes"

	// MaxRecentRoutes bounds the recent-route history.
	MaxRecentRoutes = 25
)

// ErrCorrupt is returned when a stored value is not the JSON list it should be.
var ErrCorrupt = errors.New("corrupt stored value")

// RecentRoute is one remembered journey, newest first in the history.
type RecentRoute struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	SavedAt   int64    `json:"savedAt"`
	TotalCost *float64 `json:"totalCost,omitempty"`
}

// Store reads and writes the favourites and recent-route lists.
//
// Read-modify-write operations (ToggleFavourite, PushRecentRoute) are
// serialized per key inside one Store. Two Stores over the same substrate can
// still lose updates to each other.
type Store struct {
	kv  kvstore.Store
	log *utils.Logger

	favMu    sync.Mutex
	recentMu sync.Mutex
}

func New(kv kvstore.Store, log *utils.Logger) *Store {
	return &Store{kv: kv, log: log}
}

// GetFavourites returns the favourite gate codes in insertion order. A key
// that was never written yields an empty list.
func (s *Store) GetFavourites(ctx context.Context) ([]string, error) {
	codes := []string{}
	if err := s.readList(ctx, KeyFavGates, &codes); err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []string{}
	}
	return codes, nil
}

// SetFavourites replaces the stored list.
func (s *Store) SetFavourites(ctx context.Context, codes []string) error {
	if codes == nil {
		codes = []string{}
	}
	return s.writeList(ctx, KeyFavGates, codes)
}

// ToggleFavourite removes code if present, appends it otherwise, and returns
// the list as written.
func (s *Store) ToggleFavourite(ctx context.Context, code string) ([]string, error) {
	s.favMu.Lock()
	defer s.favMu.Unlock()

	all, err := s.GetFavourites(ctx)
	if err != nil {
		return nil, err
	}
	next := make([]string, 0, len(all)+1)
	found := false
	for _, c := range all {
		if c == code {
			found = true
			continue
		}
		next = append(next, c)
	}
	if !found {
		next = append(next, code)
	}
	if err := s.SetFavourites(ctx, next); err != nil {
		return nil, err
	}
	s.log.Infof("favourite %s toggled (now %d favourites)", code, len(next))
	return next, nil
}

// IsFavourite reports whether code is in the favourites list.
func (s *Store) IsFavourite(ctx context.Context, code string) (bool, error) {
	all, err := s.GetFavourites(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range all {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}

// GetRecentRoutes returns the history, newest first.
func (s *Store) GetRecentRoutes(ctx context.Context) ([]RecentRoute, error) {
	routes := []RecentRoute{}
	if err := s.readList(ctx, KeyRecentRoutes, &routes); err != nil {
		return nil, err
	}
	if routes == nil {
		routes = []RecentRoute{}
	}
	return routes, nil
}

// PushRecentRoute prepends route and keeps only the newest MaxRecentRoutes entries.
func (s *Store) PushRecentRoute(ctx context.Context, route RecentRoute) error {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()

	all, err := s.GetRecentRoutes(ctx)
	if err != nil {
		return err
	}
	next := make([]RecentRoute, 0, len(all)+1)
	next = append(next, route)
	next = append(next, all...)
	if len(next) > MaxRecentRoutes {
		next = next[:MaxRecentRoutes]
	}
	return s.writeList(ctx, KeyRecentRoutes, next)
}

// ClearRecentRoutes drops the whole history.
func (s *Store) ClearRecentRoutes(ctx context.Context) error {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()
	return s.kv.RemoveItem(ctx, KeyRecentRoutes)
}

func (s *Store) readList(ctx context.Context, key string, out any) error {
	raw, ok, err := s.kv.GetItem(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.log.Warnf("stored %s is not valid JSON: %v", key, err)
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return nil
}

func (s *Store) writeList(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.kv.SetItem(ctx, key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
