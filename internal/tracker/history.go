// Package tracker turns per-frame readings into debounced states and change logs.
//
// Trackers are not safe for concurrent use on their own; a Session serializes
// access to the trackers it owns.
package tracker

import "time"

// DefaultRetention is the number of entries each change log keeps.
const DefaultRetention = 10000

// History is an append-only log that keeps at most limit entries,
// dropping the oldest first. A limit of zero or less keeps everything.
type History[T any] struct {
	items []T
	limit int
}

// NewHistory creates a history bounded to limit entries.
func NewHistory[T any](limit int) *History[T] {
	return &History[T]{limit: limit}
}

// Append adds v, evicting the oldest entry if the history is full.
func (h *History[T]) Append(v T) {
	if h.limit > 0 && len(h.items) >= h.limit {
		h.items = append(h.items[1:], v)
		return
	}
	h.items = append(h.items, v)
}

// Len returns the number of retained entries.
func (h *History[T]) Len() int {
	return len(h.items)
}

// Last returns the newest entry.
func (h *History[T]) Last() (T, bool) {
	var zero T
	if len(h.items) == 0 {
		return zero, false
	}
	return h.items[len(h.items)-1], true
}

// Snapshot returns a copy of the retained entries, oldest first.
// The result is never nil so it encodes as a JSON array.
func (h *History[T]) Snapshot() []T {
	out := make([]T, len(h.items))
	copy(out, h.items)
	return out
}

// Seconds converts t to fractional Unix seconds, the timestamp format used in change logs.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
