package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/reviewcore/internal/batch"
	"github.com/example/reviewcore/internal/config"
	"github.com/example/reviewcore/internal/core"
	"github.com/example/reviewcore/internal/gesture"
	"github.com/example/reviewcore/internal/idgen"
	"github.com/example/reviewcore/internal/notify"
	"github.com/example/reviewcore/internal/scheduler"
	"github.com/example/reviewcore/internal/session"
	"github.com/example/reviewcore/internal/sqlstore"
	"github.com/example/reviewcore/internal/store"
	"github.com/example/reviewcore/pkg/models"
)

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	driverName := os.Getenv("REVIEWCORE_DB_DRIVER")
	dsn := os.Getenv("REVIEWCORE_DB_DSN")
	if driverName == "" {
		driverName = "sqlite3"
	}
	if dsn == "" {
		dsn = "reviewcore.db"
	}

	backing, err := sqlstore.Open(driverName, dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer backing.Close()

	clock := core.SystemClock{}

	items, err := store.New(backing, cfg.HotCacheCapacity, cfg.HistoryCacheCapacity)
	if err != nil {
		log.Fatalf("Failed to build item store: %v", err)
	}

	writer, err := batch.New(backing, clock, cfg)
	if err != nil {
		log.Fatalf("Failed to build batch writer: %v", err)
	}

	stats, err := writer.Recover(ctx)
	if err != nil {
		log.Fatalf("Failed to recover from crash log: %v", err)
	}
	log.Printf("Recovery: total=%d due=%d parsed=%d skipped=%d",
		stats.TotalCount, stats.DueCount, stats.ParsedCount, stats.SkippedCount)

	seedDemoItems(ctx, backing, clock)

	sched := scheduler.New(clock, items, cfg.PeriodicReviewCheckInterval)
	sched.Start(ctx)
	defer sched.Stop()

	writer.Start(ctx)
	defer writer.Stop()

	notifier := notify.Logger{Prefix: "reviewd"}
	mgr := session.New(clock, items, writer, sched, notifier, cfg)

	if err := mgr.StartSession(ctx); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	if err := mgr.StartCurrentStudy(ctx); err != nil {
		log.Printf("No item due at startup: %v", err)
	}

	classifier := gesture.New(gesture.Config{
		DoubleTapThreshold:    cfg.DoubleTapThreshold,
		LongPressThreshold:    cfg.LongPressThreshold,
		FlingDistancePX:       cfg.FlingDistancePX,
		FlingVelocityPXPerSec: cfg.FlingVelocityPXPerSec,
	})
	_ = classifier // wired by whatever transport drives TouchDown/TouchUp; absent here.

	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(cfg.BackgroundReturnCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				mgr.HandleForeground(ctx)
			case <-ctx.Done():
				log.Println("Stopping foreground re-check loop...")
				return
			}
		}
	}()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if _, err := mgr.EndSession(shutdownCtx); err != nil {
			log.Printf("Error ending session during shutdown: %v", err)
		}
		close(done)
	}()

	log.Println("reviewd started. Press Ctrl+C to stop.")
	<-done
	log.Println("reviewd stopped successfully")
}

// seedDemoItems populates the store with a handful of items on a fresh
// database so the binary has something to schedule on first run. It
// writes through backing.PutItem directly rather than going through the
// batch writer; that's fine here since no session is running yet to race
// with, but it's the one place in this binary that bypasses the batch
// writer's status as the sole durable-store mutator once a session starts.
func seedDemoItems(ctx context.Context, backing *sqlstore.Store, clock core.Clock) {
	existing, err := backing.LoadAllItems(ctx)
	if err != nil {
		log.Printf("Failed to check for existing items: %v", err)
		return
	}
	if len(existing) > 0 {
		return
	}

	counter := idgen.NewItemCounter(0)
	now := clock.Now()
	seed := []struct{ word, meaning string }{
		{"ephemeral", "lasting for a very short time"},
		{"ubiquitous", "present, appearing, or found everywhere"},
		{"laconic", "using very few words"},
	}
	for _, s := range seed {
		id, err := counter.Next()
		if err != nil {
			log.Printf("Failed to allocate demo item id: %v", err)
			return
		}
		item := models.NewItem(id, s.word, s.meaning, 0, now)
		if err := backing.PutItem(ctx, item); err != nil {
			log.Printf("Failed to seed item %s: %v", id, err)
		}
	}
}
