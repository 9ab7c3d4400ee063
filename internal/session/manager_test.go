package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/reviewcore/internal/batch"
	"github.com/example/reviewcore/internal/config"
	"github.com/example/reviewcore/internal/core"
	"github.com/example/reviewcore/internal/core/coretest"
	"github.com/example/reviewcore/internal/notify"
	"github.com/example/reviewcore/internal/scheduler"
	"github.com/example/reviewcore/internal/store"
	"github.com/example/reviewcore/pkg/models"
)

type harness struct {
	ctx      context.Context
	clock    *coretest.FakeClock
	backing  *coretest.MemStorage
	items    *store.Store
	writer   *batch.Writer
	sched    *scheduler.Scheduler
	notifier *notify.Recorder
	mgr      *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := coretest.NewFakeClock(time.Now())
	backing := coretest.NewMemStorage()
	items, err := store.New(backing, 10, 10)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.BatchInterval = time.Hour
	cfg.BatchSizeThreshold = 1000

	writer, err := batch.New(backing, clock, cfg)
	require.NoError(t, err)

	sched := scheduler.New(clock, items, time.Hour)
	notifier := &notify.Recorder{}
	mgr := New(clock, items, writer, sched, notifier, cfg)

	return &harness{
		ctx: context.Background(), clock: clock, backing: backing,
		items: items, writer: writer, sched: sched, notifier: notifier, mgr: mgr,
	}
}

func (h *harness) seedItem(t *testing.T, id, word string, dueOffset time.Duration) *models.Item {
	t.Helper()
	it := models.NewItem(id, word, word+"-meaning", 0, h.clock.Now().Add(dueOffset))
	require.NoError(t, h.backing.PutItem(h.ctx, it))
	return it
}

func TestStartSession_BuildsQueueFromDueItems(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "000001", "apple", -time.Second)
	h.seedItem(t, "000002", "banana", time.Hour) // not due

	require.NoError(t, h.mgr.StartSession(h.ctx))
	require.NoError(t, h.mgr.StartCurrentStudy(h.ctx))

	assert.Equal(t, "000001", h.mgr.currentItemID)

	events := h.notifier.All()
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, "SessionStarted", events[0].Name)
}

func TestOnGesture_RejectsAccidentalDwell(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "000001", "apple", -time.Second)
	require.NoError(t, h.mgr.StartSession(h.ctx))
	require.NoError(t, h.mgr.StartCurrentStudy(h.ctx))

	h.clock.Advance(150 * time.Millisecond)
	require.NoError(t, h.mgr.OnGesture(h.ctx, models.ActionSwipeNext))

	// Study is still active; the gesture was discarded, not consumed.
	assert.Equal(t, "000001", h.mgr.currentItemID)

	events := h.notifier.All()
	assert.Equal(t, "AccidentalOperation", events[len(events)-1].Name)
}

func TestOnGesture_WithNoActiveStudy_ReturnsErrNoCurrentItem(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.mgr.StartSession(h.ctx))
	err := h.mgr.OnGesture(h.ctx, models.ActionSwipeNext)
	assert.ErrorIs(t, err, core.ErrNoCurrentItem)
}

func TestOnGesture_ScoresAndRemovesFromQueue(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "000001", "apple", -time.Second)
	require.NoError(t, h.mgr.StartSession(h.ctx))
	require.NoError(t, h.mgr.StartCurrentStudy(h.ctx))

	h.clock.Advance(4 * time.Second)
	require.NoError(t, h.mgr.OnGesture(h.ctx, models.ActionSwipeNext))

	assert.Empty(t, h.mgr.currentItemID, "study must end after scoring")
	assert.Equal(t, 0, h.mgr.queue.Len(), "the studied item must leave the active queue")

	got, ok, err := h.items.GetItem(h.ctx, "000001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, got.VirtualReviewCount)
	assert.True(t, got.NextReviewTime.After(h.clock.Now()))

	history, err := h.items.GetHistory(h.ctx, "000001")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ActionSwipeNext, history[0].Action)
}

func TestOnGesture_CannotDoubleScoreTheSameStudy(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "000001", "apple", -time.Second)
	require.NoError(t, h.mgr.StartSession(h.ctx))
	require.NoError(t, h.mgr.StartCurrentStudy(h.ctx))

	h.clock.Advance(4 * time.Second)
	require.NoError(t, h.mgr.OnGesture(h.ctx, models.ActionSwipeNext))

	err := h.mgr.OnGesture(h.ctx, models.ActionSwipeNext)
	assert.ErrorIs(t, err, core.ErrNoCurrentItem)
}

func TestMoveToNext_EmptyQueue_StartsIdleWaitAndEmitsQueueEmpty(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.mgr.StartSession(h.ctx))

	require.NoError(t, h.mgr.MoveToNext(h.ctx))

	events := h.notifier.All()
	assert.Equal(t, "QueueEmpty", events[len(events)-1].Name)
}

func TestMoveToNext_SelectsTheNewHeadAfterTheCurrentItemIsStudied(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "000001", "apple", -2*time.Second)
	h.seedItem(t, "000002", "banana", -time.Second)
	require.NoError(t, h.mgr.StartSession(h.ctx))
	require.NoError(t, h.mgr.StartCurrentStudy(h.ctx))
	assert.Equal(t, "000001", h.mgr.currentItemID)

	h.clock.Advance(4 * time.Second)
	require.NoError(t, h.mgr.OnGesture(h.ctx, models.ActionSwipeNext))
	require.Empty(t, h.mgr.currentItemID)

	require.NoError(t, h.mgr.MoveToNext(h.ctx))
	assert.Equal(t, "000002", h.mgr.currentItemID)
}

func TestMoveToNext_AdvancesAndWrapsWhenTheHeadIsNotDue(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.mgr.StartSession(h.ctx))
	h.seedItem(t, "000001", "apple", time.Hour)
	h.seedItem(t, "000002", "banana", time.Hour)

	// Neither item is due, so HeadDue is false and the advance/wrap path
	// runs instead of the preempt path; current_index is already at the
	// last slot, so advance fails and the cursor wraps to 0.
	h.mgr.queue.IDs = []string{"000001", "000002"}
	h.mgr.queue.CurrentIndex = 1

	require.NoError(t, h.mgr.MoveToNext(h.ctx))
	assert.Equal(t, 0, h.mgr.queue.CurrentIndex, "falling off the end wraps to index 0")
	assert.Equal(t, "000001", h.mgr.currentItemID)
}

func TestPauseSession_DiscardsGesturesWithoutTimingSideEffects(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "000001", "apple", -time.Second)
	require.NoError(t, h.mgr.StartSession(h.ctx))
	require.NoError(t, h.mgr.StartCurrentStudy(h.ctx))
	require.NoError(t, h.mgr.PauseSession())

	h.clock.Advance(time.Second)
	require.NoError(t, h.mgr.OnGesture(h.ctx, models.ActionSwipeNext))

	assert.Equal(t, "000001", h.mgr.currentItemID, "a paused session must not consume the gesture")

	require.NoError(t, h.mgr.ResumeSession())
	h.clock.Advance(time.Second)
	require.NoError(t, h.mgr.OnGesture(h.ctx, models.ActionSwipeNext))
	assert.Empty(t, h.mgr.currentItemID)
}

func TestAddItem_InsertsAtQueueHead(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "000001", "apple", -time.Second)
	require.NoError(t, h.mgr.StartSession(h.ctx))
	require.NoError(t, h.mgr.StartCurrentStudy(h.ctx))

	imported := models.NewItem("000002", "kiwi", "奇异果", 0, h.clock.Now())
	require.NoError(t, h.mgr.AddItem(h.ctx, imported))

	assert.Equal(t, "000002", h.mgr.queue.IDs[0])
	assert.Equal(t, "000001", h.mgr.currentItemID, "importing must not preempt the already-started study")
}

func TestEndSession_TransitionsToEndedAndRejectsFurtherOperations(t *testing.T) {
	h := newHarness(t)
	h.seedItem(t, "000001", "apple", -time.Second)
	require.NoError(t, h.mgr.StartSession(h.ctx))

	result, err := h.mgr.EndSession(h.ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)

	err = h.mgr.StartCurrentStudy(h.ctx)
	assert.ErrorIs(t, err, core.ErrNoActiveSession)

	_, err = h.mgr.EndSession(h.ctx)
	assert.ErrorIs(t, err, core.ErrNoActiveSession)
}
