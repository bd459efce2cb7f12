package tracker

import (
	"time"

	"github.com/ayusman/drishti/internal/extract"
)

// LightChange is one entry of the ambient light log.
type LightChange struct {
	AmbientLight extract.Light `json:"ambient_light"`
	Timestamp    float64       `json:"timestamp"`
}

// AmbientTracker logs the first ambient light reading and every change after it.
type AmbientTracker struct {
	current extract.Light
	started bool
	last    time.Time
	log     *History[LightChange]
}

func NewAmbientTracker(retention int) *AmbientTracker {
	return &AmbientTracker{log: NewHistory[LightChange](retention)}
}

// Observe records a light reading taken at now and reports whether it was logged.
// A reading older than the last logged one is ignored so the log stays ordered.
func (t *AmbientTracker) Observe(l extract.Light, now time.Time) (changed bool) {
	if t.started && (l == t.current || now.Before(t.last)) {
		return false
	}
	t.started = true
	t.current = l
	t.last = now
	t.log.Append(LightChange{AmbientLight: l, Timestamp: Seconds(now)})
	return true
}

func (t *AmbientTracker) Current() extract.Light {
	return t.current
}

func (t *AmbientTracker) Changes() []LightChange {
	return t.log.Snapshot()
}
