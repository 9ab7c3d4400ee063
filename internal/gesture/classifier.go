// Package gesture implements the touch gesture classifier (C6): it maps
// raw touch events to exactly one of SwipeNext, ShowMeaning, MarkDifficult
// per completed gesture, rejecting accidental input. The classifier is
// stateful only across a single tap window and resets on every completed
// classification.
package gesture

import (
	"math"
	"time"

	"github.com/example/reviewcore/pkg/models"
)

// Config holds the thresholds from §6 that govern classification.
type Config struct {
	DoubleTapThreshold    time.Duration
	LongPressThreshold    time.Duration
	FlingDistancePX       float64
	FlingVelocityPXPerSec float64
}

// DefaultConfig returns the §6 defaults (300ms double-tap, 500ms
// long-press, 100px/50px-per-s fling).
func DefaultConfig() Config {
	return Config{
		DoubleTapThreshold:    300 * time.Millisecond,
		LongPressThreshold:    500 * time.Millisecond,
		FlingDistancePX:       100,
		FlingVelocityPXPerSec: 50,
	}
}

// Classifier tracks the state needed to disambiguate a single tap from a
// double tap across one tap window.
type Classifier struct {
	cfg Config

	pressing        bool
	pressStart      time.Time
	hasPendingTap   bool
	lastTapTime     time.Time
}

// New builds a Classifier with the given config.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// TouchDown begins tracking a press.
func (c *Classifier) TouchDown(now time.Time) {
	c.pressing = true
	c.pressStart = now
}

// TouchUp completes a press. dx/dy is the dominant-axis displacement and
// vx/vy the dominant-axis velocity observed during the gesture; pass zeros
// for a stationary tap or long-press. It returns the classified action and
// true when a gesture completes immediately (fling, long-press, or a tap
// that closes a pending double-tap window); for a lone single tap it
// returns false and the caller must call ResolvePendingTap once the
// double-tap window has elapsed with no second tap.
func (c *Classifier) TouchUp(now time.Time, dx, dy, vx, vy float64) (models.Action, bool) {
	if !c.pressing {
		return "", false
	}
	pressDuration := now.Sub(c.pressStart)
	c.pressing = false

	dominantDelta := math.Max(math.Abs(dx), math.Abs(dy))
	dominantVelocity := math.Max(math.Abs(vx), math.Abs(vy))
	if dominantDelta > c.cfg.FlingDistancePX && dominantVelocity > c.cfg.FlingVelocityPXPerSec {
		c.reset()
		return models.ActionSwipeNext, true
	}

	if pressDuration >= c.cfg.LongPressThreshold {
		c.reset()
		return models.ActionMarkDifficult, true
	}

	if c.hasPendingTap && now.Sub(c.lastTapTime) <= c.cfg.DoubleTapThreshold {
		c.reset()
		return models.ActionMarkDifficult, true
	}

	c.hasPendingTap = true
	c.lastTapTime = now
	return "", false
}

// ResolvePendingTap confirms a lone single tap as ShowMeaning once the
// double-tap window has elapsed without a second tap. It returns false if
// there is no pending tap or the window has not yet elapsed.
func (c *Classifier) ResolvePendingTap(now time.Time) (models.Action, bool) {
	if c.hasPendingTap && now.Sub(c.lastTapTime) > c.cfg.DoubleTapThreshold {
		c.reset()
		return models.ActionShowMeaning, true
	}
	return "", false
}

// HasPendingTap reports whether a single tap is awaiting its double-tap
// window to elapse.
func (c *Classifier) HasPendingTap() bool { return c.hasPendingTap }

func (c *Classifier) reset() {
	c.hasPendingTap = false
}
