// Package coretest provides fake Clock/Storage implementations shared by
// every package's tests, so each package doesn't redeclare its own.
package coretest

import (
	"context"
	"sync"
	"time"

	"github.com/example/reviewcore/pkg/models"
)

// FakeClock is a manually-advanced Clock for deterministic timer tests.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// MemStorage is an in-memory Storage backed by plain maps, standing in for
// a database in tests that don't need sqlstore.
type MemStorage struct {
	mu      sync.Mutex
	items   map[string]*models.Item
	history map[string][]models.ReviewRecord
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		items:   make(map[string]*models.Item),
		history: make(map[string][]models.ReviewRecord),
	}
}

func (m *MemStorage) PutItem(_ context.Context, item *models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item.Clone()
	return nil
}

func (m *MemStorage) AppendRecord(_ context.Context, itemID string, record models.ReviewRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[itemID] = append(m.history[itemID], record)
	return nil
}

func (m *MemStorage) LoadAllItems(_ context.Context) ([]*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it.Clone())
	}
	return out, nil
}

func (m *MemStorage) LoadHistory(_ context.Context, itemID string) ([]models.ReviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ReviewRecord, len(m.history[itemID]))
	copy(out, m.history[itemID])
	return out, nil
}

// FailingStorage wraps a Storage and fails every PutItem/AppendRecord call,
// used to exercise the batch writer's snapshot-on-failure path.
type FailingStorage struct {
	*MemStorage
	Fail bool
}

func NewFailingStorage() *FailingStorage {
	return &FailingStorage{MemStorage: NewMemStorage()}
}

func (f *FailingStorage) PutItem(ctx context.Context, item *models.Item) error {
	if f.Fail {
		return context.DeadlineExceeded
	}
	return f.MemStorage.PutItem(ctx, item)
}

func (f *FailingStorage) AppendRecord(ctx context.Context, itemID string, record models.ReviewRecord) error {
	if f.Fail {
		return context.DeadlineExceeded
	}
	return f.MemStorage.AppendRecord(ctx, itemID, record)
}
