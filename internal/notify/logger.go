// Package notify provides Notifier implementations. Logger logs every
// callback with the standard log package — these are low-volume
// lifecycle events, not a high-throughput stream, so a structured logger
// would add a dependency without adding anything a prefixed log.Printf
// doesn't already give us.
package notify

import (
	"log"

	"github.com/example/reviewcore/pkg/models"
)

// Logger is a Notifier that logs every callback.
type Logger struct {
	Prefix string
}

func (l Logger) logf(format string, args ...interface{}) {
	prefix := l.Prefix
	if prefix == "" {
		prefix = "reviewcore"
	}
	log.Printf("["+prefix+"] "+format, args...)
}

func (l Logger) SessionStarted(session models.Session) {
	l.logf("session started id=%s", session.ID)
}

func (l Logger) SessionEnded(result models.Result) {
	l.logf("session ended id=%s items_studied=%d total_actions=%d", result.SessionID, result.ItemsStudied, result.TotalActions)
}

func (l Logger) SessionPaused(session models.Session) {
	l.logf("session paused id=%s", session.ID)
}

func (l Logger) SessionResumed(session models.Session) {
	l.logf("session resumed id=%s", session.ID)
}

func (l Logger) StudyStarted(item models.Item) {
	l.logf("study started item=%s word=%q", item.ID, item.Word)
}

func (l Logger) StudyCompleted(item models.Item, record models.ReviewRecord, updated models.Item) {
	l.logf("study completed item=%s action=%s next_review_time=%s", item.ID, record.Action, updated.NextReviewTime)
}

func (l Logger) QueueEmpty() {
	l.logf("queue empty")
}

func (l Logger) QueueRefreshed(item *models.Item) {
	if item == nil {
		l.logf("queue refreshed")
		return
	}
	l.logf("queue refreshed item=%s", item.ID)
}

func (l Logger) ItemAddedToQueue(item models.Item) {
	l.logf("item added to queue item=%s", item.ID)
}

func (l Logger) AccidentalOperation(dwellMillis int64, description string) {
	l.logf("accidental operation rejected dwell=%dms %s", dwellMillis, description)
}
