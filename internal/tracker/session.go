package tracker

import (
	"sync"
	"time"

	"github.com/ayusman/drishti/internal/extract"
)

// Alert is a kind of wellness notification a reading can trigger.
type Alert string

const (
	AlertLookAway Alert = "look_away"
	AlertDistance Alert = "distance"
	AlertBlink    Alert = "blink"
)

// Session holds the trackers of one monitored client. All methods are safe
// for concurrent use; readings for the same session are applied one at a time.
type Session struct {
	mu        sync.Mutex
	id        string
	userID    string
	started   time.Time
	lastSeen  time.Time
	direction *DirectionTracker
	blink     *BlinkTracker
	distance  *DistanceTracker
	ambient   *AmbientTracker
}

// NewSession creates an empty session. Each change log keeps at most retention entries.
func NewSession(id string, retention int, now time.Time) *Session {
	return &Session{
		id:        id,
		started:   now,
		lastSeen:  now,
		direction: NewDirectionTracker(retention),
		blink:     NewBlinkTracker(retention),
		distance:  NewDistanceTracker(retention),
		ambient:   NewAmbientTracker(retention),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// UserID returns the user the session belongs to, if known.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// SetUserID associates the session with a user. Empty values are ignored.
func (s *Session) SetUserID(userID string) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
}

// LastSeen returns the time of the most recent reading.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
}

// ObserveDirection applies a gaze reading and returns the direction log.
func (s *Session) ObserveDirection(d extract.Direction, now time.Time) ([]DirectionChange, []Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(now)

	var alerts []Alert
	if s.direction.Observe(d, now) {
		alerts = append(alerts, AlertLookAway)
	}
	return s.direction.Changes(), alerts
}

// ObserveBlink applies a blink reading and returns the blink log.
func (s *Session) ObserveBlink(blinking bool, now time.Time) ([]float64, []Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(now)

	var alerts []Alert
	if _, remind := s.blink.Observe(blinking, now); remind {
		alerts = append(alerts, AlertBlink)
	}
	return s.blink.Timestamps(), alerts
}

// ObserveDistance applies a distance reading. A reading without a distance
// (no face, or a zero landmark span) leaves the tracker untouched.
func (s *Session) ObserveDistance(cm float64, ok bool, now time.Time) ([]DistanceChange, []Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(now)

	var alerts []Alert
	if ok && s.distance.Observe(cm, now) {
		alerts = append(alerts, AlertDistance)
	}
	return s.distance.Changes(), alerts
}

// ObserveLight applies an ambient light reading and returns the light log.
func (s *Session) ObserveLight(l extract.Light, now time.Time) []LightChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(now)

	s.ambient.Observe(l, now)
	return s.ambient.Changes()
}

// Snapshot is the full state of a session.
type Snapshot struct {
	SessionID        string                 `json:"session_id"`
	UserID           string                 `json:"user_id,omitempty"`
	StartTime        float64                `json:"start_time"`
	LastSeen         float64                `json:"last_seen"`
	Direction        extract.Direction      `json:"direction"`
	DirectionChanges []DirectionChange      `json:"direction_changes"`
	BlinkCount       int                    `json:"blink_count"`
	BlinkTimestamps  []float64              `json:"blink_timestamps"`
	AmbientLight     extract.Light          `json:"amb_light,omitempty"`
	LightChanges     []LightChange          `json:"state_changes"`
	Distance         extract.DistanceBucket `json:"distance,omitempty"`
	DistanceChanges  []DistanceChange       `json:"distance_changes"`
}

// Snapshot copies the current state of every tracker.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.distance.Changes())
}

// Finish returns a snapshot whose distance log includes the active bucket
// closed at now. The session itself is not modified.
func (s *Session) Finish(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.distance.Closed(now))
}

func (s *Session) snapshot(distance []DistanceChange) Snapshot {
	return Snapshot{
		SessionID:        s.id,
		UserID:           s.userID,
		StartTime:        Seconds(s.started),
		LastSeen:         Seconds(s.lastSeen),
		Direction:        s.direction.Current(),
		DirectionChanges: s.direction.Changes(),
		BlinkCount:       s.blink.Count(),
		BlinkTimestamps:  s.blink.Timestamps(),
		AmbientLight:     s.ambient.Current(),
		LightChanges:     s.ambient.Changes(),
		Distance:         s.distance.Current(),
		DistanceChanges:  distance,
	}
}
