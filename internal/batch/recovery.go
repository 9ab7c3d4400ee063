package batch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"time"
)

// RecoveryStats summarizes what a startup recovery pass found.
type RecoveryStats struct {
	TotalCount               int
	DueCount                 int
	ParsedCount              int
	SkippedCount             int
	MemoryUsageEstimateBytes int64
}

// Recover runs the §4.8.4 startup recovery procedure: replay
// pending_updates.json (if present) into Storage and delete it, then scan
// backup_study_records.json line by line for reporting. The crash log is
// retained; call Cleanup to remove it explicitly.
func (w *Writer) Recover(ctx context.Context) (RecoveryStats, error) {
	var stats RecoveryStats

	if err := w.replaySnapshot(ctx); err != nil {
		return stats, err
	}

	info, err := os.Stat(w.crashLogPath())
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, err
	}
	stats.MemoryUsageEstimateBytes = info.Size()
	if stats.MemoryUsageEstimateBytes > 100*1024*1024 {
		log.Printf("batch: crash log is %d bytes, exceeding the 100MB advisory limit", stats.MemoryUsageEstimateBytes)
	}

	known, err := w.knownItems(ctx)
	if err != nil {
		return stats, err
	}

	if err := w.scanCrashLog(known, w.clock.Now(), &stats); err != nil {
		return stats, err
	}

	if stats.DueCount > stats.TotalCount {
		stats.DueCount = stats.TotalCount
	}
	return stats, nil
}

func (w *Writer) replaySnapshot(ctx context.Context) error {
	data, err := os.ReadFile(w.snapshotPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var snap pendingSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("batch: failed to parse pending snapshot, leaving it in place: %v", err)
		return nil
	}

	for _, item := range snap.Updates {
		if err := w.backing.PutItem(ctx, item); err != nil {
			log.Printf("batch: failed to apply recovered item %s: %v", item.ID, err)
		}
	}
	for id, records := range snap.Records {
		for _, r := range records {
			if err := w.backing.AppendRecord(ctx, id, r); err != nil {
				log.Printf("batch: failed to apply recovered record for %s: %v", id, err)
			}
		}
	}

	if err := os.Remove(w.snapshotPath()); err != nil && !os.IsNotExist(err) {
		log.Printf("batch: failed to remove pending snapshot: %v", err)
	}
	return nil
}

func (w *Writer) knownItems(ctx context.Context) (map[string]time.Time, error) {
	items, err := w.backing.LoadAllItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(items))
	for _, it := range items {
		out[it.ID] = it.NextReviewTime
	}
	return out, nil
}

func (w *Writer) scanCrashLog(known map[string]time.Time, now time.Time, stats *RecoveryStats) error {
	f, err := os.Open(w.crashLogPath())
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var parsed crashLogLine
		if err := json.Unmarshal(line, &parsed); err != nil {
			stats.SkippedCount++
			continue
		}
		stats.ParsedCount++

		nextReviewTime, ok := known[parsed.ItemID]
		if !ok {
			continue
		}
		stats.TotalCount++
		if !nextReviewTime.After(now) {
			stats.DueCount++
		}
	}
	return scanner.Err()
}
