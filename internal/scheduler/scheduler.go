// Package scheduler implements the due-time scheduler (C5): per-item
// one-shot timers that promote items into the recommendation queue at
// their due instant, an idle-wait timer for when the queue empties, and a
// gocron-driven periodic rescan as a safety net. The scheduler never
// mutates session state directly; it only posts Promotion messages onto
// an outbox channel that the session owner drains on its own goroutine,
// per the message-passing design in spec §5 and §9.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/reviewcore/internal/core"
	"github.com/example/reviewcore/internal/store"
	"github.com/example/reviewcore/pkg/models"
)

// PromotionKind distinguishes the two events C5 can emit.
type PromotionKind int

const (
	KindItemPromoted PromotionKind = iota
	KindQueueRefreshed
)

// Promotion is a message posted to the session owner. Item is nil for a
// bare idle-timer-triggered QueueRefreshed.
type Promotion struct {
	Kind PromotionKind
	Item *models.Item
}

// Scheduler owns the per-item timers, the idle-wait timer, and the
// periodic rescan job. It is a process-level singleton: a front end
// constructs one, starts it once, and reuses it across many
// StartSession/EndSession cycles, so nothing here may assume a consumer
// is always draining Out() — between sessions nobody is.
type Scheduler struct {
	clock core.Clock
	items *store.Store
	out   chan Promotion

	mu         sync.Mutex
	itemTimers map[string]*time.Timer
	idleTimer  *time.Timer
	stopOnce   sync.Once
	done       chan struct{}

	cron             *gocron.Scheduler
	periodicInterval time.Duration
}

// New builds a Scheduler. periodicInterval is the §6 "periodic
// review-check interval" (default 60s); values <= 0 fall back to it.
func New(clock core.Clock, items *store.Store, periodicInterval time.Duration) *Scheduler {
	if periodicInterval <= 0 {
		periodicInterval = 60 * time.Second
	}
	return &Scheduler{
		clock:            clock,
		items:            items,
		out:              make(chan Promotion, 64),
		itemTimers:       make(map[string]*time.Timer),
		done:             make(chan struct{}),
		cron:             gocron.NewScheduler(time.UTC),
		periodicInterval: periodicInterval,
	}
}

// Out is the outbox the session owner drains.
func (s *Scheduler) Out() <-chan Promotion { return s.out }

// Start begins the recurring periodic due-scan.
func (s *Scheduler) Start(ctx context.Context) {
	seconds := int(s.periodicInterval.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	s.cron.Every(seconds).Seconds().Do(func() { s.periodicRescan(ctx) })
	s.cron.StartAsync()
}

// Stop halts the periodic job, cancels every outstanding timer, and
// releases any goroutine parked trying to post a Promotion with nobody
// listening. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.CancelAll()
	s.stopOnce.Do(func() { close(s.done) })
}

// post delivers a Promotion without blocking forever when no session is
// between StartSession calls and nothing is draining Out(): it waits on
// either a successful send or Stop(), whichever comes first, instead of
// an unconditional channel send.
func (s *Scheduler) post(p Promotion) {
	select {
	case s.out <- p:
	case <-s.done:
	}
}

// RegisterPromotion schedules a one-shot timer for item's due instant.
// Coalescing: at most one pending timer per item ID; re-registering
// replaces the prior timer.
func (s *Scheduler) RegisterPromotion(ctx context.Context, item *models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.itemTimers[item.ID]; ok {
		t.Stop()
	}
	d := item.NextReviewTime.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	id := item.ID
	s.itemTimers[id] = time.AfterFunc(d, func() { s.fireItem(ctx, id) })
}

func (s *Scheduler) fireItem(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.itemTimers, id)
	s.mu.Unlock()

	it, ok, err := s.items.GetItem(ctx, id)
	if err != nil || !ok {
		return
	}
	// Timers may fire up to 250ms late; re-verify against the item's
	// current next_review_time rather than trusting the scheduled fire.
	if it.NextReviewTime.After(s.clock.Now()) {
		return
	}
	s.post(Promotion{Kind: KindItemPromoted, Item: it})
}

// StartIdleWait finds t* = min next_review_time > now across all items
// and schedules a single timer to rebuild the queue at t*. It replaces any
// existing idle timer (single slot).
func (s *Scheduler) StartIdleWait(ctx context.Context) {
	t, ok, err := s.items.NextDueAfter(ctx, s.clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	if err != nil || !ok {
		return
	}
	d := t.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	s.idleTimer = time.AfterFunc(d, func() { s.fireIdle() })
}

func (s *Scheduler) fireIdle() {
	s.mu.Lock()
	s.idleTimer = nil
	s.mu.Unlock()
	s.post(Promotion{Kind: KindQueueRefreshed, Item: nil})
}

// ForceRecheck is used by the "returned to foreground" lifecycle hook to
// immediately rescan for due items rather than waiting for the next
// periodic tick.
func (s *Scheduler) ForceRecheck(ctx context.Context) {
	s.periodicRescan(ctx)
}

func (s *Scheduler) periodicRescan(ctx context.Context) {
	ids, err := s.items.DueItemIDs(ctx, s.clock.Now())
	if err != nil {
		return
	}
	for _, id := range ids {
		it, ok, err := s.items.GetItem(ctx, id)
		if err != nil || !ok {
			continue
		}
		s.post(Promotion{Kind: KindItemPromoted, Item: it})
	}
}

// CancelAll stops every per-item timer and the idle-wait timer. Called by
// end_session.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.itemTimers {
		t.Stop()
		delete(s.itemTimers, id)
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}
