// Package idgen issues item and session identifiers. Item IDs follow the
// recommended scheme from spec.md §3: a zero-padded decimal in
// [1, 999_999] issued monotonically from a process-wide counter, the same
// dense-identifier shape as a SQL AUTOINCREMENT column. Session IDs use a
// collision-free UUID since sessions are not required to be numerically
// dense.
package idgen

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/example/reviewcore/internal/core"
)

const maxItemID = 999_999

// ItemCounter is the process-wide monotonic counter backing item IDs. It
// may be seeded from a persisted high-water mark so numbering survives a
// restart.
type ItemCounter struct {
	mu   sync.Mutex
	next int
}

// NewItemCounter builds a counter that will hand out start+1 next.
func NewItemCounter(start int) *ItemCounter {
	return &ItemCounter{next: start}
}

// Next returns the next zero-padded decimal ID, or ErrDuplicateItemID once
// the counter is exhausted.
func (c *ItemCounter) Next() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next >= maxItemID {
		return "", core.ErrDuplicateItemID
	}
	c.next++
	return fmt.Sprintf("%06d", c.next), nil
}

// HighWaterMark returns the largest ID issued so far, for persistence.
func (c *ItemCounter) HighWaterMark() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// NewSessionID returns a collision-free session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
