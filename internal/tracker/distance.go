package tracker

import (
	"time"

	"github.com/ayusman/drishti/internal/extract"
)

// DistanceChange is a closed interval spent in one distance bucket.
type DistanceChange struct {
	Distance  extract.DistanceBucket `json:"distance"`
	StartTime float64                `json:"start_time"`
	EndTime   float64                `json:"end_time"`
}

// DistanceTracker logs how long the viewer stays in each distance bucket.
// The active bucket is logged only once it is superseded.
type DistanceTracker struct {
	current extract.DistanceBucket
	entered time.Time
	started bool
	log     *History[DistanceChange]
}

// NewDistanceTracker creates a tracker whose log keeps at most retention intervals.
func NewDistanceTracker(retention int) *DistanceTracker {
	return &DistanceTracker{log: NewHistory[DistanceChange](retention)}
}

// Observe records a distance reading in centimeters taken at now.
// Bucket changes less than DebounceTime after the previous one are ignored.
// It reports whether the reading is too close to the screen.
func (t *DistanceTracker) Observe(cm float64, now time.Time) (tooClose bool) {
	b := extract.ClassifyDistance(cm)

	switch {
	case !t.started:
		t.started = true
		t.current = b
		t.entered = now
	case b != t.current && now.Sub(t.entered) >= DebounceTime:
		t.log.Append(DistanceChange{
			Distance:  t.current,
			StartTime: Seconds(t.entered),
			EndTime:   Seconds(now),
		})
		t.current = b
		t.entered = now
	}

	return b == extract.DistanceClose
}

// Current returns the active bucket, or "" before the first reading.
func (t *DistanceTracker) Current() extract.DistanceBucket {
	return t.current
}

// Changes returns a copy of the closed intervals.
func (t *DistanceTracker) Changes() []DistanceChange {
	return t.log.Snapshot()
}

// Closed returns the log with the active bucket closed at now, without
// modifying the tracker.
func (t *DistanceTracker) Closed(now time.Time) []DistanceChange {
	out := t.log.Snapshot()
	if t.started && now.After(t.entered) {
		out = append(out, DistanceChange{
			Distance:  t.current,
			StartTime: Seconds(t.entered),
			EndTime:   Seconds(now),
		})
	}
	return out
}
