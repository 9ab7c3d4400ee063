// Package session implements the session manager (C7): the state machine
// tying the queue manager (C4), due-time scheduler (C5), and gesture
// classifications together. It measures dwell, drives the strength
// calculator (C3), and emits Notifier callbacks. Manager is the single
// logical owner described in spec §5: every public method takes an
// internal mutex guarding the queue and current-study state together, and
// the scheduler communicates with it only by posting Promotion messages
// that a dedicated goroutine drains and applies under that same lock.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/reviewcore/internal/batch"
	"github.com/example/reviewcore/internal/config"
	"github.com/example/reviewcore/internal/core"
	"github.com/example/reviewcore/internal/idgen"
	"github.com/example/reviewcore/internal/queue"
	"github.com/example/reviewcore/internal/scheduler"
	"github.com/example/reviewcore/internal/store"
	"github.com/example/reviewcore/internal/strength"
	"github.com/example/reviewcore/pkg/models"
)

// Manager is the session state machine (Idle -> Active -> (Active |
// Paused) -> Ended).
type Manager struct {
	clock    core.Clock
	items    *store.Store
	writer   *batch.Writer
	sched    *scheduler.Scheduler
	notifier core.Notifier
	cfg      config.Config

	mu             sync.Mutex
	session        *models.Session
	queue          *models.RecommendationQueue
	currentItemID  string
	studyStartTime time.Time

	stopDrain chan struct{}
	drainWG   sync.WaitGroup
}

// New builds a Manager. The scheduler is expected to already have had
// Start called on it by the caller that owns its lifecycle.
func New(clock core.Clock, items *store.Store, writer *batch.Writer, sched *scheduler.Scheduler, notifier core.Notifier, cfg config.Config) *Manager {
	return &Manager{
		clock:    clock,
		items:    items,
		writer:   writer,
		sched:    sched,
		notifier: notifier,
		cfg:      cfg,
	}
}

// StartSession transitions Idle -> Active: it creates a session ID,
// builds the initial queue from every currently-due item, starts draining
// scheduler promotions, and emits SessionStarted.
func (m *Manager) StartSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	all, err := m.items.AllItems(ctx)
	if err != nil {
		return err
	}

	m.session = &models.Session{ID: idgen.NewSessionID(), StartTime: now, IsActive: true}
	m.queue = queue.BuildInitial(all, now)
	m.currentItemID = ""
	m.studyStartTime = time.Time{}

	m.startDrainLocked(ctx)
	session := *m.session
	m.mu.Unlock()
	m.notifier.SessionStarted(session)
	m.mu.Lock()
	return nil
}

// StartCurrentStudy loads the queue's current item and begins timing it.
func (m *Manager) StartCurrentStudy(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || !m.session.IsActive {
		return core.ErrNoActiveSession
	}
	id, ok := queue.Current(m.queue)
	if !ok {
		return core.ErrNoCurrentItem
	}
	return m.beginStudyLocked(ctx, id)
}

func (m *Manager) beginStudyLocked(ctx context.Context, itemID string) error {
	it, ok, err := m.items.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrNoCurrentItem
	}
	m.currentItemID = itemID
	m.studyStartTime = m.clock.Now()
	item := *it
	m.mu.Unlock()
	m.notifier.StudyStarted(item)
	m.mu.Lock()
	return nil
}

// OnGesture scores a classified gesture against the item currently being
// studied. A gesture with dwell < the accidental threshold is rejected
// without any state change; a gesture with no active study returns
// ErrNoCurrentItem so the same completed study can never be double-scored.
func (m *Manager) OnGesture(ctx context.Context, action models.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || !m.session.IsActive {
		return core.ErrNoActiveSession
	}
	if m.queue.IsPaused {
		return nil
	}
	if m.currentItemID == "" || m.studyStartTime.IsZero() {
		return core.ErrNoCurrentItem
	}

	now := m.clock.Now()
	dwell := now.Sub(m.studyStartTime).Milliseconds()
	if dwell < int64(m.cfg.AccidentalThreshold/time.Millisecond) {
		m.mu.Unlock()
		m.notifier.AccidentalOperation(dwell, fmt.Sprintf("dwell %dms below the %dms accidental threshold", dwell, m.cfg.AccidentalThreshold/time.Millisecond))
		m.mu.Lock()
		return nil
	}

	itemID := m.currentItemID
	item, ok, err := m.items.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrNoCurrentItem
	}

	sessionID := m.session.ID
	record := models.ReviewRecord{
		ItemID:      item.ID,
		DwellMillis: dwell,
		ReviewTime:  now,
		Action:      action,
		SessionID:   &sessionID,
	}

	history, err := m.items.GetHistory(ctx, item.ID)
	if err != nil {
		return err
	}

	updated := strength.ComputeUpdate(*item, record, history)

	if err := m.items.UpdateItem(ctx, &updated); err != nil {
		return err
	}
	if err := m.items.AddRecord(ctx, item.ID, record); err != nil {
		return err
	}

	m.session.ItemsStudied++
	m.session.TotalActions++

	// The new next_review_time is always strictly after now (the 5s
	// floor guarantees it), so the item always leaves the active queue
	// and is handed to C5 for later promotion.
	if updated.NextReviewTime.After(now) {
		queue.RemoveItem(m.queue, item.ID)
		m.sched.RegisterPromotion(ctx, &updated)
	}

	m.currentItemID = ""
	m.studyStartTime = time.Time{}

	if err := m.writer.EnqueueRecord(ctx, item.ID, record); err != nil {
		log.Printf("session: crash-safe record append failed, relying on in-memory store: %v", err)
	}
	if err := m.writer.EnqueueUpdate(ctx, &updated); err != nil {
		log.Printf("session: enqueue update failed: %v", err)
	}

	itemCopy, updatedCopy := *item, updated
	m.mu.Unlock()
	m.notifier.StudyCompleted(itemCopy, record, updatedCopy)
	m.mu.Lock()
	return nil
}

// MoveToNext implements §4.7's preempt-then-advance-then-wrap logic: the
// queue head preempts the current position when it is due; otherwise the
// cursor advances, wrapping to 0 if it fell off a non-empty queue, or
// starting the idle-wait timer and emitting QueueEmpty if the queue is
// empty.
func (m *Manager) MoveToNext(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || !m.session.IsActive {
		return core.ErrNoActiveSession
	}

	now := m.clock.Now()
	lookup := func(id string) (time.Time, bool) { return m.items.LookupNextReviewTime(ctx, id) }

	if _, ok := queue.HeadDue(m.queue, now, lookup); ok {
		m.queue.CurrentIndex = 0
	} else if !queue.Advance(m.queue) {
		if m.queue.Len() == 0 {
			m.currentItemID = ""
			m.sched.StartIdleWait(ctx)
			m.mu.Unlock()
			m.notifier.QueueEmpty()
			m.mu.Lock()
			return nil
		}
		queue.WrapToStart(m.queue)
	}

	id, ok := queue.Current(m.queue)
	if !ok {
		m.currentItemID = ""
		m.sched.StartIdleWait(ctx)
		m.mu.Unlock()
		m.notifier.QueueEmpty()
		m.mu.Lock()
		return nil
	}
	return m.beginStudyLocked(ctx, id)
}

// AddItem imports an item mid-session: it registers the item with the
// store and inserts it at the queue head (stack-style insertion, §4.4).
func (m *Manager) AddItem(ctx context.Context, item *models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || !m.session.IsActive {
		return core.ErrNoActiveSession
	}
	if err := m.items.AddItem(ctx, item); err != nil {
		return err
	}
	if err := m.writer.EnqueueUpdate(ctx, item); err != nil {
		log.Printf("session: enqueue update for imported item failed: %v", err)
	}
	queue.AddItem(m.queue, item.ID)
	itemCopy := *item
	m.mu.Unlock()
	m.notifier.ItemAddedToQueue(itemCopy)
	m.mu.Lock()
	return nil
}

// PauseSession toggles is_paused; paused sessions discard incoming
// gestures without timing side effects but keep their scheduled timers.
func (m *Manager) PauseSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || !m.session.IsActive {
		return core.ErrNoActiveSession
	}
	queue.Pause(m.queue)
	session := *m.session
	m.mu.Unlock()
	m.notifier.SessionPaused(session)
	m.mu.Lock()
	return nil
}

// ResumeSession clears is_paused.
func (m *Manager) ResumeSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || !m.session.IsActive {
		return core.ErrNoActiveSession
	}
	queue.Resume(m.queue)
	session := *m.session
	m.mu.Unlock()
	m.notifier.SessionResumed(session)
	m.mu.Lock()
	return nil
}

// EndSession stops the current study without scoring it, cancels every
// scheduler timer, forces a batch-writer flush, and transitions to Ended.
// Subsequent operations fail with ErrNoActiveSession.
func (m *Manager) EndSession(ctx context.Context) (models.Result, error) {
	m.mu.Lock()
	if m.session == nil || !m.session.IsActive {
		m.mu.Unlock()
		return models.Result{}, core.ErrNoActiveSession
	}
	session := *m.session
	m.session.IsActive = false
	m.currentItemID = ""
	m.studyStartTime = time.Time{}
	stopCh := m.stopDrain
	m.stopDrain = nil
	m.mu.Unlock()

	m.sched.CancelAll()
	if stopCh != nil {
		close(stopCh)
		m.drainWG.Wait()
	}

	if err := m.writer.Flush(ctx); err != nil {
		log.Printf("session: force-flush on end_session failed: %v", err)
	}

	result := models.Result{
		SessionID:    session.ID,
		StartTime:    session.StartTime,
		EndTime:      m.clock.Now(),
		ItemsStudied: session.ItemsStudied,
		TotalActions: session.TotalActions,
	}
	m.notifier.SessionEnded(result)

	m.mu.Lock()
	m.session = nil
	m.queue = nil
	m.mu.Unlock()
	return result, nil
}

// HandleBackground is the "went to background" lifecycle hook: it forces
// a batch-writer flush.
func (m *Manager) HandleBackground(ctx context.Context) {
	if err := m.writer.Flush(ctx); err != nil {
		log.Printf("session: background flush failed: %v", err)
	}
}

// HandleForeground is the "returned to foreground" lifecycle hook: it
// forces the scheduler to re-check for due items immediately rather than
// waiting for the next periodic tick.
func (m *Manager) HandleForeground(ctx context.Context) {
	m.sched.ForceRecheck(ctx)
}

// startDrainLocked starts the goroutine that applies scheduler promotion
// messages under m.mu, realizing the message-passing design of §5/§9
// without sharing a lock with the scheduler.
func (m *Manager) startDrainLocked(ctx context.Context) {
	m.stopDrain = make(chan struct{})
	stopCh := m.stopDrain
	m.drainWG.Add(1)
	go func() {
		defer m.drainWG.Done()
		for {
			select {
			case <-stopCh:
				return
			case p, ok := <-m.sched.Out():
				if !ok {
					return
				}
				m.applyPromotion(ctx, p)
			}
		}
	}()
}

func (m *Manager) applyPromotion(ctx context.Context, p scheduler.Promotion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || !m.session.IsActive || m.queue == nil || m.queue.IsPaused {
		return
	}

	switch p.Kind {
	case scheduler.KindItemPromoted:
		if p.Item == nil || m.queue.Contains(p.Item.ID) {
			return
		}
		if p.Item.NextReviewTime.After(m.clock.Now()) {
			return
		}
		queue.AddItem(m.queue, p.Item.ID)
		item := *p.Item
		hasCurrent := m.currentItemID != ""
		m.mu.Unlock()
		m.notifier.ItemAddedToQueue(item)
		m.mu.Lock()
		if !hasCurrent {
			m.mu.Unlock()
			m.notifier.QueueRefreshed(&item)
			m.mu.Lock()
			_ = m.beginStudyLocked(ctx, p.Item.ID)
		}

	case scheduler.KindQueueRefreshed:
		all, err := m.items.AllItems(ctx)
		if err != nil {
			return
		}
		now := m.clock.Now()
		m.queue = queue.BuildInitial(all, now)
		m.currentItemID = ""
		id, ok := queue.Current(m.queue)
		if !ok {
			m.mu.Unlock()
			m.notifier.QueueRefreshed(nil)
			m.mu.Lock()
			return
		}
		it, ok, err := m.items.GetItem(ctx, id)
		if err != nil || !ok {
			return
		}
		item := *it
		m.mu.Unlock()
		m.notifier.QueueRefreshed(&item)
		m.mu.Lock()
		_ = m.beginStudyLocked(ctx, id)
	}
}
