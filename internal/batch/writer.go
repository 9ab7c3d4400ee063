// Package batch implements the write-behind batch writer and crash
// recovery (C8). It is the only component permitted to mutate the durable
// Storage: sessions hand it updates and records, it flushes them in
// batches, and it keeps a crash-safe append-only log so no record is lost
// even if the process dies before a flush lands.
package batch

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/mohae/deepcopy"

	"github.com/example/reviewcore/internal/config"
	"github.com/example/reviewcore/internal/core"
	"github.com/example/reviewcore/pkg/models"
)

const (
	crashLogFileName = "backup_study_records.json"
	snapshotFileName = "pending_updates.json"
)

// Writer is the write-behind buffer plus crash-safe log.
type Writer struct {
	backing core.Storage
	clock   core.Clock
	cfg     config.Config

	mu             sync.Mutex
	pendingUpdates map[string]*models.Item
	pendingRecords map[string][]models.ReviewRecord
	lastFlush      time.Time

	cron *gocron.Scheduler
}

// New builds a Writer, creating cfg.DataDir if needed.
func New(backing core.Storage, clock core.Clock, cfg config.Config) (*Writer, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, err
	}
	return &Writer{
		backing:        backing,
		clock:          clock,
		cfg:            cfg,
		pendingUpdates: make(map[string]*models.Item),
		pendingRecords: make(map[string][]models.ReviewRecord),
		lastFlush:      clock.Now(),
		cron:           gocron.NewScheduler(time.UTC),
	}, nil
}

func (w *Writer) crashLogPath() string { return filepath.Join(w.cfg.DataDir, crashLogFileName) }
func (w *Writer) snapshotPath() string { return filepath.Join(w.cfg.DataDir, snapshotFileName) }

// Start begins the recurring §6 auto-save (default 30s).
func (w *Writer) Start(ctx context.Context) {
	seconds := int(w.cfg.AutoSaveInterval.Seconds())
	if seconds < 1 {
		seconds = 30
	}
	w.cron.Every(seconds).Seconds().Do(func() {
		if err := w.Flush(ctx); err != nil {
			log.Printf("batch: auto-save flush failed: %v", err)
		}
	})
	w.cron.StartAsync()
}

// Stop halts the recurring auto-save.
func (w *Writer) Stop() { w.cron.Stop() }

// EnqueueUpdate buffers the latest item value; last write for an ID wins.
func (w *Writer) EnqueueUpdate(ctx context.Context, item *models.Item) error {
	w.mu.Lock()
	w.pendingUpdates[item.ID] = item.Clone()
	w.mu.Unlock()
	return w.maybeFlush(ctx)
}

// EnqueueRecord appends record to the crash-safe log before it ever enters
// the buffer, then buffers it for write-behind. A crash-log append
// failure is logged and returned, but callers must never let it block the
// session: the gesture has already been scored in the in-memory store.
func (w *Writer) EnqueueRecord(ctx context.Context, itemID string, record models.ReviewRecord) error {
	logErr := w.appendCrashLog(itemID, record)

	w.mu.Lock()
	w.pendingRecords[itemID] = append(w.pendingRecords[itemID], record)
	w.mu.Unlock()

	if err := w.maybeFlush(ctx); err != nil {
		return err
	}
	return logErr
}

func (w *Writer) appendCrashLog(itemID string, record models.ReviewRecord) error {
	f, err := os.OpenFile(w.crashLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("batch: failed to open crash log: %v", err)
		return err
	}
	defer f.Close()

	line := toCrashLogLine(itemID, record, w.clock.Now().UnixMilli())
	b, err := json.Marshal(line)
	if err != nil {
		log.Printf("batch: failed to marshal crash log line: %v", err)
		return err
	}
	b = append(b, '\n')
	if _, err := f.Write(b); err != nil {
		log.Printf("batch: failed to append crash log: %v", err)
		return err
	}
	return nil
}

func (w *Writer) pendingRecordTotalLocked() int {
	total := 0
	for _, rs := range w.pendingRecords {
		total += len(rs)
	}
	return total
}

func (w *Writer) maybeFlush(ctx context.Context) error {
	w.mu.Lock()
	due := w.clock.Now().Sub(w.lastFlush) >= w.cfg.BatchInterval ||
		len(w.pendingUpdates) >= w.cfg.BatchSizeThreshold ||
		w.pendingRecordTotalLocked() >= w.cfg.BatchSizeThreshold
	w.mu.Unlock()
	if !due {
		return nil
	}
	return w.Flush(ctx)
}

// Flush is the force-flush path: background transitions, end_session, and
// cleanup all call it directly regardless of the write-behind thresholds.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	updates, _ := deepcopy.Copy(w.pendingUpdates).(map[string]*models.Item)
	records, _ := deepcopy.Copy(w.pendingRecords).(map[string][]models.ReviewRecord)
	w.mu.Unlock()

	if len(updates) == 0 && len(records) == 0 {
		w.mu.Lock()
		w.lastFlush = w.clock.Now()
		w.mu.Unlock()
		return nil
	}

	if err := w.writeThrough(ctx, updates, records); err != nil {
		if snapErr := w.writeSnapshot(updates, records); snapErr != nil {
			log.Printf("batch: failed to write pending snapshot: %v", snapErr)
		}
		return err
	}

	w.mu.Lock()
	for id := range updates {
		delete(w.pendingUpdates, id)
	}
	for id, flushed := range records {
		remaining := w.pendingRecords[id]
		if len(remaining) <= len(flushed) {
			delete(w.pendingRecords, id)
		} else {
			w.pendingRecords[id] = remaining[len(flushed):]
		}
	}
	w.lastFlush = w.clock.Now()
	w.mu.Unlock()
	return nil
}

func (w *Writer) writeThrough(ctx context.Context, updates map[string]*models.Item, records map[string][]models.ReviewRecord) error {
	for _, item := range updates {
		if err := w.backing.PutItem(ctx, item); err != nil {
			return &core.PersistError{Err: err, Transient: true}
		}
	}
	for id, rs := range records {
		for _, r := range rs {
			if err := w.backing.AppendRecord(ctx, id, r); err != nil {
				return &core.PersistError{Err: err, Transient: true}
			}
		}
	}
	return nil
}

// writeSnapshot overwrites pending_updates.json with the current pending
// state. The in-memory buffer is not cleared so a later flush can retry.
func (w *Writer) writeSnapshot(updates map[string]*models.Item, records map[string][]models.ReviewRecord) error {
	snap := pendingSnapshot{Updates: updates, Records: records}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(w.snapshotPath(), b, 0644)
}

// Cleanup removes the crash-safe log. It is never called automatically.
func (w *Writer) Cleanup() error {
	if err := os.Remove(w.crashLogPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
