package models

import "time"

// Session is one learner's active run through the recommendation queue.
// Only one Session is active per process.
type Session struct {
	ID           string
	StartTime    time.Time
	ItemsStudied int
	TotalActions int
	IsActive     bool
}

// Result summarizes a finished session for the SessionEnded callback.
type Result struct {
	SessionID    string
	StartTime    time.Time
	EndTime      time.Time
	ItemsStudied int
	TotalActions int
}
