// Package report summarizes saved sessions into eye-health metrics over a time range.
package report

import (
	"math"
	"slices"
	"sort"

	"github.com/ayusman/drishti/internal/extract"
	"github.com/ayusman/drishti/internal/store"
)

// Metrics summarizes screen habits over a time range. All values are
// rounded to two decimals.
type Metrics struct {
	// BlinkRate is blinks per minute between the earliest and latest blink.
	BlinkRate float64 `json:"blink_rate"`
	// AmbientLightRatio is the share of session time not spent in dark light.
	AmbientLightRatio float64 `json:"ambient_light_ratio"`
	// LookAwayRatio is the share of session time spent looking away.
	LookAwayRatio float64 `json:"look_away_ratio"`
	// ScreenDistance is the share of the requested range spent at a safe
	// distance, clamped to [0, 1].
	ScreenDistance float64 `json:"screen_distance"`
}

// Overlaps reports whether a session spanning [sStart, sEnd] overlaps [start, end].
func Overlaps(sStart, sEnd, start, end float64) bool {
	return (sStart >= start && sStart <= end) ||
		(sEnd >= start && sEnd <= end) ||
		(sStart <= start && sEnd >= end)
}

// Compute derives Metrics from the sessions overlapping [start, end].
// Times are Unix seconds.
func Compute(sessions []*store.Session, start, end float64) Metrics {
	var inRange []*store.Session
	for _, s := range sessions {
		if Overlaps(s.StartTime, s.EndTime, start, end) {
			inRange = append(inRange, s)
		}
	}

	return Metrics{
		BlinkRate:         round2(blinkRate(inRange)),
		AmbientLightRatio: round2(brightRatio(inRange, start, end)),
		LookAwayRatio:     round2(lookAwayRatio(inRange, start, end)),
		ScreenDistance:    round2(clamp01(safeDistanceRatio(inRange, start, end))),
	}
}

func blinkRate(sessions []*store.Session) float64 {
	total := 0
	earliest := math.Inf(1)
	latest := 0.0

	for _, s := range sessions {
		if len(s.BlinkTimestamps) == 0 {
			continue
		}
		total += len(s.BlinkTimestamps)
		for _, ts := range s.BlinkTimestamps {
			earliest = math.Min(earliest, ts)
			latest = math.Max(latest, ts)
		}
	}

	if total == 0 || math.IsInf(earliest, 1) || latest <= earliest {
		return 0
	}
	return float64(total) / ((latest - earliest) / 60)
}

// window clips a session to [start, end]. ok is false when nothing is left.
func window(s *store.Session, start, end float64) (from, to float64, ok bool) {
	from = math.Max(s.StartTime, start)
	to = math.Min(s.EndTime, end)
	return from, to, to > from
}

// segment is a state that holds from at until the next segment.
type segment struct {
	at     float64
	active bool
}

// activeTime sums the time within [from, to] covered by active segments.
// The state before the first segment counts as inactive.
func activeTime(segs []segment, from, to float64) float64 {
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].at < segs[j].at })

	total := 0.0
	for i, seg := range segs {
		next := to
		if i < len(segs)-1 {
			next = segs[i+1].at
		}
		lo := math.Max(seg.at, from)
		hi := math.Min(next, to)
		if hi > lo && seg.active {
			total += hi - lo
		}
	}
	return total
}

func brightRatio(sessions []*store.Session, start, end float64) float64 {
	var dark, span float64
	for _, s := range sessions {
		from, to, ok := window(s, start, end)
		if !ok {
			continue
		}
		span += to - from

		segs := make([]segment, len(s.LightChanges))
		for i, c := range s.LightChanges {
			segs[i] = segment{at: c.Timestamp, active: c.AmbientLight == extract.LightDark}
		}
		dark += activeTime(segs, from, to)
	}

	if span <= 0 {
		return 0
	}
	return 1 - dark/span
}

func lookAwayRatio(sessions []*store.Session, start, end float64) float64 {
	var away, span float64
	for _, s := range sessions {
		from, to, ok := window(s, start, end)
		if !ok {
			continue
		}
		span += to - from

		segs := make([]segment, len(s.DirectionChanges))
		for i, c := range s.DirectionChanges {
			segs[i] = segment{at: c.Timestamp, active: c.LookingAway == 1}
		}
		away += activeTime(segs, from, to)
	}

	if span <= 0 {
		return 0
	}
	return away / span
}

// safeDistanceRatio credits each med or far interval with the time since the
// most recent close interval started, or since the window start when there
// was none, and divides by the whole requested range.
func safeDistanceRatio(sessions []*store.Session, start, end float64) float64 {
	requested := end - start
	if requested <= 0 {
		return 0
	}

	notClose := 0.0
	for _, s := range sessions {
		from, to, ok := window(s, start, end)
		if !ok || len(s.DistanceChanges) == 0 {
			continue
		}

		changes := slices.Clone(s.DistanceChanges)
		sort.SliceStable(changes, func(i, j int) bool { return changes[i].StartTime < changes[j].StartTime })

		lastClose := math.NaN()
		for _, c := range changes {
			if c.EndTime < from || c.StartTime > to {
				continue
			}
			if c.Distance == extract.DistanceClose {
				lastClose = c.StartTime
				continue
			}

			ref := from
			if !math.IsNaN(lastClose) {
				ref = lastClose
			}
			if d := c.StartTime - ref; d > 0 {
				notClose += d
			}
		}
	}

	return notClose / requested
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
