// Package ratelimit caps how often a client may submit the lead forms.
package ratelimit

import (
	"sort"
	"time"
)

// retention is the longest span any limit may use.
const retention = 24 * time.Hour

// Limit allows at most Max requests in any trailing Span. Max zero disables
// the limit.
type Limit struct {
	Span time.Duration
	Max  int
}

func limits(perMinute, perHour, perDay int) []Limit {
	var out []Limit
	for _, l := range []Limit{
		{Span: time.Minute, Max: perMinute},
		{Span: time.Hour, Max: perHour},
		{Span: retention, Max: perDay},
	} {
		if l.Max > 0 {
			out = append(out, l)
		}
	}
	return out
}

// window holds the request times of one client, oldest first. One slice
// serves every span; counts come from a binary search on the cutoff.
type window struct {
	hits []time.Time
}

func (w *window) since(cutoff time.Time) int {
	return sort.Search(len(w.hits), func(i int) bool { return w.hits[i].After(cutoff) })
}

// count returns the requests inside the trailing span.
func (w *window) count(now time.Time, span time.Duration) int {
	return len(w.hits) - w.since(now.Add(-span))
}

func (w *window) expire(now time.Time) {
	w.hits = w.hits[w.since(now.Add(-retention)):]
}

func (w *window) allows(now time.Time, ls []Limit) bool {
	for _, l := range ls {
		if w.count(now, l.Span) >= l.Max {
			return false
		}
	}
	return true
}

func (w *window) stats(now time.Time, ls []Limit) Stats {
	s := Stats{Enabled: true}
	for _, l := range ls {
		n := w.count(now, l.Span)
		s.Windows = append(s.Windows, WindowStats{
			Span:      l.Span.String(),
			Limit:     l.Max,
			Requests:  n,
			Remaining: max(0, l.Max-n),
		})
	}
	return s
}

// WindowStats reports one limit
type WindowStats struct {
	Span      string `json:"span"`
	Limit     int    `json:"limit"`
	Requests  int    `json:"requests"`
	Remaining int    `json:"remaining"`
}

// Stats contains the counters of one client or of the global cap
type Stats struct {
	Enabled bool          `json:"enabled"`
	Windows []WindowStats `json:"windows,omitempty"`
}
