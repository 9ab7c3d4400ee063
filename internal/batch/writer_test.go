package batch

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/reviewcore/internal/config"
	"github.com/example/reviewcore/internal/core/coretest"
	"github.com/example/reviewcore/pkg/models"
)

func newTestConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.BatchInterval = time.Hour
	cfg.BatchSizeThreshold = 1000
	return cfg
}

func TestWriter_EnqueueUpdate_FlushesThroughOnThreshold(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.BatchSizeThreshold = 1
	backing := coretest.NewMemStorage()
	clock := coretest.NewFakeClock(time.Now())

	w, err := New(backing, clock, cfg)
	require.NoError(t, err)

	item := models.NewItem("000001", "apple", "苹果", 0, clock.Now())
	require.NoError(t, w.EnqueueUpdate(context.Background(), item))

	got, ok, err := func() (*models.Item, bool, error) {
		all, err := backing.LoadAllItems(context.Background())
		if err != nil || len(all) == 0 {
			return nil, false, err
		}
		return all[0], true, nil
	}()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, item.ID, got.ID)
}

func TestWriter_EnqueueRecord_AppendsCrashLogBeforeBuffering(t *testing.T) {
	cfg := newTestConfig(t)
	backing := coretest.NewMemStorage()
	clock := coretest.NewFakeClock(time.Now())

	w, err := New(backing, clock, cfg)
	require.NoError(t, err)

	record := models.ReviewRecord{ItemID: "000001", DwellMillis: 500, ReviewTime: clock.Now(), Action: models.ActionSwipeNext}
	require.NoError(t, w.EnqueueRecord(context.Background(), "000001", record))

	data, err := os.ReadFile(w.crashLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"itemId":"000001"`)
}

func TestWriter_Flush_ClearsPendingBufferOnSuccess(t *testing.T) {
	cfg := newTestConfig(t)
	backing := coretest.NewMemStorage()
	clock := coretest.NewFakeClock(time.Now())

	w, err := New(backing, clock, cfg)
	require.NoError(t, err)

	item := models.NewItem("000001", "apple", "苹果", 0, clock.Now())
	require.NoError(t, w.EnqueueUpdate(context.Background(), item))
	require.NoError(t, w.Flush(context.Background()))

	w.mu.Lock()
	pending := len(w.pendingUpdates)
	w.mu.Unlock()
	assert.Equal(t, 0, pending)
}

func TestWriter_Flush_WritesSnapshotOnFailureWithoutClearingBuffer(t *testing.T) {
	cfg := newTestConfig(t)
	failing := coretest.NewFailingStorage()
	clock := coretest.NewFakeClock(time.Now())

	w, err := New(failing, clock, cfg)
	require.NoError(t, err)

	item := models.NewItem("000001", "apple", "苹果", 0, clock.Now())
	require.NoError(t, w.EnqueueUpdate(context.Background(), item))

	failing.Fail = true
	err = w.Flush(context.Background())
	require.Error(t, err)

	w.mu.Lock()
	pending := len(w.pendingUpdates)
	w.mu.Unlock()
	assert.Equal(t, 1, pending, "a failed flush must not drop the pending update")

	_, statErr := os.Stat(w.snapshotPath())
	assert.NoError(t, statErr, "a failed flush must write a recovery snapshot")
}

func TestWriter_Cleanup_RemovesCrashLog(t *testing.T) {
	cfg := newTestConfig(t)
	backing := coretest.NewMemStorage()
	clock := coretest.NewFakeClock(time.Now())

	w, err := New(backing, clock, cfg)
	require.NoError(t, err)
	require.NoError(t, w.EnqueueRecord(context.Background(), "000001", models.ReviewRecord{ItemID: "000001"}))

	require.NoError(t, w.Cleanup())
	_, statErr := os.Stat(w.crashLogPath())
	assert.True(t, os.IsNotExist(statErr))
}
