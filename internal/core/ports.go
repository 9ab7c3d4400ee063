// Package core defines the external interfaces the review-scheduling core
// consumes (Clock, Storage, Notifier) and the sentinel errors it can
// surface. Every other internal package depends on core instead of on a
// concrete storage or transport technology.
package core

import (
	"context"
	"time"

	"github.com/example/reviewcore/pkg/models"
)

// Clock is a monotonic wall-clock source. All scheduling decisions compare
// instants drawn from the same Clock, which is what makes the scheduler
// and session tests deterministic under a fake clock.
type Clock interface {
	Now() time.Time
}

// Storage is the durable backing store the core assumes at-least-once
// durability from on a successful return. Implementations may be
// in-memory, file-based, or delegate to a database.
type Storage interface {
	PutItem(ctx context.Context, item *models.Item) error
	AppendRecord(ctx context.Context, itemID string, record models.ReviewRecord) error
	LoadAllItems(ctx context.Context) ([]*models.Item, error)
	LoadHistory(ctx context.Context, itemID string) ([]models.ReviewRecord, error)
}

// Notifier receives fire-and-forget callbacks from the core. Implementations
// must tolerate being called from either the scheduler's background
// goroutine or the session's owner goroutine, and must not take locks
// shared with the core.
type Notifier interface {
	SessionStarted(session models.Session)
	SessionEnded(result models.Result)
	SessionPaused(session models.Session)
	SessionResumed(session models.Session)
	StudyStarted(item models.Item)
	StudyCompleted(item models.Item, record models.ReviewRecord, updated models.Item)
	QueueEmpty()
	QueueRefreshed(item *models.Item)
	ItemAddedToQueue(item models.Item)
	AccidentalOperation(dwellMillis int64, description string)
}
