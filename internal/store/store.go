// Package store implements the item store & cache (C1): a bounded LRU of
// hot items, a bounded LRU of per-item history, and a due-time index,
// fronting the Storage trait (§6). A cache miss falls through to Storage;
// reads that need a global view (all_items, due_item_ids) always go to
// Storage directly, since an in-process cache can't be trusted to hold
// every item for an aggregate read.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/example/reviewcore/internal/core"
	"github.com/example/reviewcore/pkg/models"
)

const (
	// DefaultHotCacheCapacity and DefaultHistoryCacheCapacity are the §6
	// defaults (1000 items, 500 histories).
	DefaultHotCacheCapacity     = 1000
	DefaultHistoryCacheCapacity = 500
	// HistoryMaxPerItem bounds the per-item history length; the oldest
	// record is dropped on overflow.
	HistoryMaxPerItem = 200
)

// Store is the cache-fronted item store (C1).
type Store struct {
	backing core.Storage

	mu           sync.Mutex
	itemCache    *lru.Cache[string, *models.Item]
	historyCache *lru.Cache[string, []models.ReviewRecord]
	dueIndex     map[string]time.Time
}

// New builds a Store with the given cache capacities fronting backing.
func New(backing core.Storage, hotCapacity, historyCapacity int) (*Store, error) {
	if hotCapacity <= 0 {
		hotCapacity = DefaultHotCacheCapacity
	}
	if historyCapacity <= 0 {
		historyCapacity = DefaultHistoryCacheCapacity
	}
	itemCache, err := lru.New[string, *models.Item](hotCapacity)
	if err != nil {
		return nil, err
	}
	historyCache, err := lru.New[string, []models.ReviewRecord](historyCapacity)
	if err != nil {
		return nil, err
	}
	return &Store{
		backing:      backing,
		itemCache:    itemCache,
		historyCache: historyCache,
		dueIndex:     make(map[string]time.Time),
	}, nil
}

// AddItem registers a new item in the cache and due-time index.
func (s *Store) AddItem(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(item)
	return nil
}

// UpdateItem overwrites the cached item and due-time index entry
// atomically with each other.
func (s *Store) UpdateItem(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(item)
	return nil
}

func (s *Store) putLocked(item *models.Item) {
	s.itemCache.Add(item.ID, item.Clone())
	s.dueIndex[item.ID] = item.NextReviewTime
}

// RemoveItem evicts an item from both caches and the due-time index.
func (s *Store) RemoveItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemCache.Remove(id)
	s.historyCache.Remove(id)
	delete(s.dueIndex, id)
	return nil
}

// GetItem returns the item for id, falling through to Storage on a cache
// miss by reloading the full item set (Storage exposes no single-item
// load, only LoadAllItems).
func (s *Store) GetItem(ctx context.Context, id string) (*models.Item, bool, error) {
	s.mu.Lock()
	if it, ok := s.itemCache.Get(id); ok {
		s.mu.Unlock()
		return it.Clone(), true, nil
	}
	s.mu.Unlock()

	if err := s.reload(ctx); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.itemCache.Get(id); ok {
		return it.Clone(), true, nil
	}
	return nil, false, nil
}

// reload re-populates the caches' due-time view from Storage. It does not
// evict entries that Storage no longer returns; RemoveItem is the only
// path that forgets an item.
func (s *Store) reload(ctx context.Context) error {
	all, err := s.backing.LoadAllItems(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range all {
		s.itemCache.Add(it.ID, it.Clone())
		s.dueIndex[it.ID] = it.NextReviewTime
	}
	return nil
}

// AllItems always queries Storage directly: the LRU is sized for hot
// single-item lookups, not for answering "give me everything".
func (s *Store) AllItems(ctx context.Context) ([]*models.Item, error) {
	return s.backing.LoadAllItems(ctx)
}

// DueItemIDs returns the IDs of items whose next_review_time <= now,
// sorted ascending by next_review_time.
func (s *Store) DueItemIDs(ctx context.Context, now time.Time) ([]string, error) {
	all, err := s.backing.LoadAllItems(ctx)
	if err != nil {
		return nil, err
	}
	due := make([]*models.Item, 0, len(all))
	for _, it := range all {
		if !it.NextReviewTime.After(now) {
			due = append(due, it)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NextReviewTime.Before(due[j].NextReviewTime)
	})
	ids := make([]string, len(due))
	for i, it := range due {
		ids[i] = it.ID
	}
	return ids, nil
}

// NextDueAfter finds t* = min over items of next_review_time > now, used by
// the scheduler's idle-wait timer. ok is false when no item is scheduled
// for the future.
func (s *Store) NextDueAfter(ctx context.Context, now time.Time) (t time.Time, ok bool, err error) {
	all, err := s.backing.LoadAllItems(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	for _, it := range all {
		if it.NextReviewTime.After(now) {
			if !ok || it.NextReviewTime.Before(t) {
				t = it.NextReviewTime
				ok = true
			}
		}
	}
	return t, ok, nil
}

// LookupNextReviewTime is the lookup callback queue.SortByNextReview and
// queue.HeadDue expect; it prefers the cache and falls through on miss.
func (s *Store) LookupNextReviewTime(ctx context.Context, id string) (time.Time, bool) {
	s.mu.Lock()
	if t, ok := s.dueIndex[id]; ok {
		s.mu.Unlock()
		return t, true
	}
	s.mu.Unlock()
	it, ok, err := s.GetItem(ctx, id)
	if err != nil || !ok {
		return time.Time{}, false
	}
	return it.NextReviewTime, true
}

// GetHistory returns the item's history (<= 200 entries, oldest first),
// falling through to Storage on a cache miss.
func (s *Store) GetHistory(ctx context.Context, id string) ([]models.ReviewRecord, error) {
	s.mu.Lock()
	if h, ok := s.historyCache.Get(id); ok {
		s.mu.Unlock()
		return cloneRecords(h), nil
	}
	s.mu.Unlock()

	h, err := s.backing.LoadHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(h) > HistoryMaxPerItem {
		h = h[len(h)-HistoryMaxPerItem:]
	}
	s.mu.Lock()
	s.historyCache.Add(id, h)
	s.mu.Unlock()
	return cloneRecords(h), nil
}

// AddRecord appends a record to the cached history, dropping the oldest
// entry past 200. It does not write through to Storage; the batch writer
// (C8) is the only path that mutates the durable store.
func (s *Store) AddRecord(ctx context.Context, id string, record models.ReviewRecord) error {
	existing, err := s.GetHistory(ctx, id)
	if err != nil {
		return err
	}
	existing = append(existing, record)
	if len(existing) > HistoryMaxPerItem {
		existing = existing[len(existing)-HistoryMaxPerItem:]
	}
	s.mu.Lock()
	s.historyCache.Add(id, existing)
	s.mu.Unlock()
	return nil
}

func cloneRecords(in []models.ReviewRecord) []models.ReviewRecord {
	out := make([]models.ReviewRecord, len(in))
	copy(out, in)
	return out
}
