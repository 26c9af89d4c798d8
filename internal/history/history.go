// Package history maintains the bounded, recency-ordered list of visited
// tabs and the per-site access counter.
package history

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/lotas/recentswitch/internal/applog"
	"github.com/lotas/recentswitch/internal/storage"
	"github.com/lotas/recentswitch/internal/types"
)

const (
	// RecentTabsKey is the KV key holding the ordered record list.
	RecentTabsKey = "recentTabs"

	// DefaultMaxRecords bounds the list when no limit is configured.
	DefaultMaxRecords = 8
)

// KV is the subset of the persistent store the history needs.
type KV interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Store is the History Store. Every write re-derives the full invariant
// (dedup by id, sorted by LastAccessed descending, at most max entries), so
// out-of-order event delivery can never leave the persisted list invalid.
type Store struct {
	kv  KV
	max int
	mu  sync.Mutex // serializes read-modify-write cycles
}

// NewStore creates a store bounded to max records.
func NewStore(kv KV, max int) *Store {
	if max < 1 {
		max = DefaultMaxRecords
	}
	return &Store{kv: kv, max: max}
}

// Max returns the configured bound.
func (s *Store) Max() int { return s.max }

// Upsert inserts rec or replaces the record with the same ID, then re-sorts
// and truncates before persisting.
func (s *Store) Upsert(ctx context.Context, rec types.TabRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	list = slices.DeleteFunc(list, func(r types.TabRecord) bool { return r.ID == rec.ID })
	list = append([]types.TabRecord{rec}, list...)
	list = normalize(list, s.max)

	if err := s.kv.Set(ctx, RecentTabsKey, list); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	applog.Debug("history.upsert", "tab", rec.ID, "size", len(list))
	return nil
}

// Remove drops any record with the given ID. Removing an unknown ID leaves
// the list unchanged.
func (s *Store) Remove(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	list = normalize(slices.DeleteFunc(list, func(r types.TabRecord) bool { return r.ID == id }), s.max)

	if err := s.kv.Set(ctx, RecentTabsKey, list); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	applog.Debug("history.remove", "tab", id, "size", len(list))
	return nil
}

// GetAll returns the ordered list, most recent first. It never returns nil:
// an absent list is initialized to empty and persisted. A stored list that
// violates the invariant, or does not decode at all, is repaired and
// written back.
func (s *Store) GetAll(ctx context.Context) ([]types.TabRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, found, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		if err := s.kv.Set(ctx, RecentTabsKey, list); err != nil {
			return nil, fmt.Errorf("initialize history: %w", err)
		}
		return list, nil
	}

	fixed := normalize(slices.Clone(list), s.max)
	if !slices.Equal(fixed, list) {
		applog.Info("history.repaired", "before", len(list), "after", len(fixed))
		if err := s.kv.Set(ctx, RecentTabsKey, fixed); err != nil {
			return nil, fmt.Errorf("persist repaired history: %w", err)
		}
	}
	return fixed, nil
}

// load reads the current list for a mutation.
func (s *Store) load(ctx context.Context) ([]types.TabRecord, error) {
	list, _, err := s.read(ctx)
	return list, err
}

// read returns the stored list and whether a usable one was found. A
// document that does not decode is logged and reported as absent so the
// next write heals it. Any other storage error is returned and nothing is
// written.
func (s *Store) read(ctx context.Context) ([]types.TabRecord, bool, error) {
	var list []types.TabRecord
	found, err := s.kv.Get(ctx, RecentTabsKey, &list)
	switch {
	case errors.Is(err, storage.ErrDecode):
		applog.Error("history.decode", err)
		return []types.TabRecord{}, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("load history: %w", err)
	case !found || list == nil:
		return []types.TabRecord{}, false, nil
	}
	return list, true, nil
}

// normalize enforces the store invariant on list. Earlier entries win when
// IDs collide, so callers put the newest write first.
func normalize(list []types.TabRecord, max int) []types.TabRecord {
	seen := make(map[int]bool, len(list))
	out := list[:0]
	for _, r := range list {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b types.TabRecord) int {
		switch {
		case a.LastAccessed > b.LastAccessed:
			return -1
		case a.LastAccessed < b.LastAccessed:
			return 1
		}
		return 0
	})
	if len(out) > max {
		out = out[:max]
	}
	if out == nil {
		return []types.TabRecord{}
	}
	return out
}
