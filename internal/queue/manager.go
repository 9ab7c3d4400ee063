// Package queue implements the recommendation queue manager (C4): it
// builds, mutates, and reorders the ordered sequence of item IDs that a
// Session studies through.
package queue

import (
	"sort"
	"time"

	"github.com/example/reviewcore/pkg/models"
)

// FarFuture stands in for "unknown" in SortByNextReview's lookup so
// unknown IDs sort to the back.
var FarFuture = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

// BuildInitial includes every item with next_review_time <= now, sorted
// ascending by next_review_time, with current_index = 0.
func BuildInitial(items []*models.Item, now time.Time) *models.RecommendationQueue {
	due := make([]*models.Item, 0, len(items))
	for _, it := range items {
		if !it.NextReviewTime.After(now) {
			due = append(due, it)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NextReviewTime.Before(due[j].NextReviewTime)
	})
	ids := make([]string, len(due))
	for i, it := range due {
		ids[i] = it.ID
	}
	return &models.RecommendationQueue{IDs: ids, CurrentIndex: 0}
}

// Current returns the ID at the cursor, or false when the queue is empty
// or the cursor has run past the end.
func Current(q *models.RecommendationQueue) (string, bool) {
	if q == nil || q.CurrentIndex < 0 || q.CurrentIndex >= len(q.IDs) {
		return "", false
	}
	return q.IDs[q.CurrentIndex], true
}

// Advance increments current_index when a next element exists, reporting
// whether it did.
func Advance(q *models.RecommendationQueue) bool {
	if q.CurrentIndex+1 < len(q.IDs) {
		q.CurrentIndex++
		return true
	}
	return false
}

// WrapToStart resets current_index to 0. Used when advance falls off the
// end of a non-empty queue.
func WrapToStart(q *models.RecommendationQueue) {
	if len(q.IDs) > 0 {
		q.CurrentIndex = 0
	}
}

// AddItem performs the stack-style insertion: a freshly due or imported
// item is placed at position 0 so the session switches to it at the next
// move_to_next. Duplicate IDs are ignored (this spec resolves the add-to-
// queue-already-present question as dedup-at-head, not reposition).
func AddItem(q *models.RecommendationQueue, id string) {
	if q.Contains(id) {
		return
	}
	q.IDs = append([]string{id}, q.IDs...)
	// Keep the previous current item "current" until move_to_next decides
	// to preempt it for the new head.
	q.CurrentIndex++
}

// RemoveItem removes id, preserving the order of the remaining IDs and
// adjusting current_index down if it pointed past the removal.
func RemoveItem(q *models.RecommendationQueue, id string) {
	idx := -1
	for i, v := range q.IDs {
		if v == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	q.IDs = append(q.IDs[:idx], q.IDs[idx+1:]...)
	if q.CurrentIndex > idx {
		q.CurrentIndex--
	}
}

// SortByNextReview stably reorders the remaining IDs by
// lookup(id).next_review_time, treating unknown IDs as infinitely far off.
func SortByNextReview(q *models.RecommendationQueue, lookup func(id string) (time.Time, bool)) {
	currentID, hasCurrent := Current(q)
	sort.SliceStable(q.IDs, func(i, j int) bool {
		return timeOf(q.IDs[i], lookup).Before(timeOf(q.IDs[j], lookup))
	})
	if hasCurrent {
		for i, id := range q.IDs {
			if id == currentID {
				q.CurrentIndex = i
				break
			}
		}
	}
}

func timeOf(id string, lookup func(string) (time.Time, bool)) time.Time {
	if t, ok := lookup(id); ok {
		return t
	}
	return FarFuture
}

// Pause and Resume toggle is_paused.
func Pause(q *models.RecommendationQueue)  { q.IsPaused = true }
func Resume(q *models.RecommendationQueue) { q.IsPaused = false }

// HeadDue reports whether the queue's head (position 0) holds an item
// whose next_review_time <= now, per lookup. Session.move_to_next uses
// this to preempt the current position.
func HeadDue(q *models.RecommendationQueue, now time.Time, lookup func(id string) (time.Time, bool)) (string, bool) {
	if len(q.IDs) == 0 {
		return "", false
	}
	head := q.IDs[0]
	t, ok := lookup(head)
	if !ok || t.After(now) {
		return "", false
	}
	return head, true
}
