package notify

import (
	"sync"

	"github.com/example/reviewcore/pkg/models"
)

// Event is one recorded Notifier callback, kept for test assertions.
type Event struct {
	Name    string
	Item    *models.Item
	Record  *models.ReviewRecord
	Updated *models.Item
	Session *models.Session
	Result  *models.Result
	Dwell   int64
	Detail  string
}

// Recorder buffers every callback in memory so tests can assert on
// delivery order without standing up a real transport.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
}

// All returns a snapshot of the recorded events so far.
func (r *Recorder) All() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.Events))
	copy(out, r.Events)
	return out
}

func (r *Recorder) SessionStarted(session models.Session) {
	r.record(Event{Name: "SessionStarted", Session: &session})
}

func (r *Recorder) SessionEnded(result models.Result) {
	r.record(Event{Name: "SessionEnded", Result: &result})
}

func (r *Recorder) SessionPaused(session models.Session) {
	r.record(Event{Name: "SessionPaused", Session: &session})
}

func (r *Recorder) SessionResumed(session models.Session) {
	r.record(Event{Name: "SessionResumed", Session: &session})
}

func (r *Recorder) StudyStarted(item models.Item) {
	r.record(Event{Name: "StudyStarted", Item: &item})
}

func (r *Recorder) StudyCompleted(item models.Item, record models.ReviewRecord, updated models.Item) {
	r.record(Event{Name: "StudyCompleted", Item: &item, Record: &record, Updated: &updated})
}

func (r *Recorder) QueueEmpty() {
	r.record(Event{Name: "QueueEmpty"})
}

func (r *Recorder) QueueRefreshed(item *models.Item) {
	r.record(Event{Name: "QueueRefreshed", Item: item})
}

func (r *Recorder) ItemAddedToQueue(item models.Item) {
	r.record(Event{Name: "ItemAddedToQueue", Item: &item})
}

func (r *Recorder) AccidentalOperation(dwellMillis int64, description string) {
	r.record(Event{Name: "AccidentalOperation", Dwell: dwellMillis, Detail: description})
}
