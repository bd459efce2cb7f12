package app

import (
	"sort"
	"sync"
	"time"

	"github.com/ayusman/drishti/internal/tracker"
)

// DefaultSessionID is used when a request does not name its session.
const DefaultSessionID = "default"

// Registry owns the live tracker sessions, keyed by session ID.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*tracker.Session
	retention int
}

// NewRegistry creates an empty registry whose sessions keep at most
// retention entries per change log.
func NewRegistry(retention int) *Registry {
	if retention <= 0 {
		retention = tracker.DefaultRetention
	}
	return &Registry{
		sessions:  make(map[string]*tracker.Session),
		retention: retention,
	}
}

// Get returns the session for id, creating it at now if needed.
func (r *Registry) Get(id string, now time.Time) *tracker.Session {
	if id == "" {
		id = DefaultSessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		sess = tracker.NewSession(id, r.retention, now)
		r.sessions[id] = sess
	}
	return sess
}

// Lookup returns the session for id without creating it.
func (r *Registry) Lookup(id string) (*tracker.Session, bool) {
	if id == "" {
		id = DefaultSessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Remove ends the session for id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs returns the live session IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sweep removes sessions that have not seen a reading for longer than idle
// and returns how many were removed.
func (r *Registry) Sweep(idle time.Duration, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, sess := range r.sessions {
		if now.Sub(sess.LastSeen()) > idle {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
