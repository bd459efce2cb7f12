package tracker

import (
	"time"

	"github.com/ayusman/drishti/internal/extract"
)

// DebounceTime is the minimum time between two accepted direction or distance changes.
const DebounceTime = 500 * time.Millisecond

// DirectionChange is one entry of the direction log.
type DirectionChange struct {
	// LookingAway is 1 unless the new direction is center.
	LookingAway int     `json:"looking_away"`
	Timestamp   float64 `json:"timestamp"`
}

// DirectionTracker debounces gaze direction readings.
type DirectionTracker struct {
	current    extract.Direction
	lastChange time.Time
	started    bool
	log        *History[DirectionChange]
}

// NewDirectionTracker creates a tracker whose log keeps at most retention entries.
func NewDirectionTracker(retention int) *DirectionTracker {
	return &DirectionTracker{
		current: extract.DirectionUnknown,
		log:     NewHistory[DirectionChange](retention),
	}
}

// Observe records a direction reading taken at now. It reports whether the
// reading moved the tracker into left or right, which warrants a look-away alert.
func (t *DirectionTracker) Observe(d extract.Direction, now time.Time) (alert bool) {
	if t.started {
		if d == t.current || now.Sub(t.lastChange) < DebounceTime {
			return false
		}
	}

	t.started = true
	t.current = d
	t.lastChange = now

	away := 0
	if d.LookingAway() {
		away = 1
	}
	t.log.Append(DirectionChange{LookingAway: away, Timestamp: Seconds(now)})

	return d == extract.DirectionLeft || d == extract.DirectionRight
}

// Current returns the last accepted direction.
func (t *DirectionTracker) Current() extract.Direction {
	return t.current
}

// Changes returns a copy of the direction log.
func (t *DirectionTracker) Changes() []DirectionChange {
	return t.log.Snapshot()
}
