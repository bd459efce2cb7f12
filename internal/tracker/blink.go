package tracker

import "time"

const (
	// MinBlinkGap collapses a multi-frame eye closure into one blink.
	MinBlinkGap = 250 * time.Millisecond
	// BlinkReminderAfter is how long without a blink before a reminder is due.
	BlinkReminderAfter = 5 * time.Second
)

// BlinkTracker counts blinks and remembers when they happened.
type BlinkTracker struct {
	count     int
	lastBlink time.Time
	since     time.Time
	log       *History[float64]
}

// NewBlinkTracker creates a tracker whose log keeps at most retention timestamps.
func NewBlinkTracker(retention int) *BlinkTracker {
	return &BlinkTracker{log: NewHistory[float64](retention)}
}

// Observe records a blink state reading taken at now.
// blinked is true when a new blink was counted. remind is true when the eyes
// are open and no blink has been counted for longer than BlinkReminderAfter;
// before the first blink the time is measured from the first reading.
func (t *BlinkTracker) Observe(blinking bool, now time.Time) (blinked, remind bool) {
	if t.since.IsZero() {
		t.since = now
	}

	if blinking {
		if t.count == 0 || now.Sub(t.lastBlink) >= MinBlinkGap {
			t.count++
			t.lastBlink = now
			t.log.Append(Seconds(now))
			return true, false
		}
		return false, false
	}

	ref := t.lastBlink
	if t.count == 0 {
		ref = t.since
	}
	return false, now.Sub(ref) > BlinkReminderAfter
}

// Count returns the number of blinks counted, including any evicted from the log.
func (t *BlinkTracker) Count() int {
	return t.count
}

// Timestamps returns a copy of the blink log.
func (t *BlinkTracker) Timestamps() []float64 {
	return t.log.Snapshot()
}
