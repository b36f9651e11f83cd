package tracker

import (
	"slices"
	"time"
)

// SmoothedSample is one displayed pitch at a point in time.
type SmoothedSample struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryTrail is the time-ordered, age- and count-bounded sequence of
// displayed pitches behind the live cursor. It is used for drawing only.
type HistoryTrail struct {
	maxAge   time.Duration
	maxCount int
	samples  []SmoothedSample
}

// NewHistoryTrail creates a trail bounded by maxAge and maxCount.
func NewHistoryTrail(maxAge time.Duration, maxCount int) *HistoryTrail {
	if maxCount < 1 {
		maxCount = 1
	}
	return &HistoryTrail{
		maxAge:   maxAge,
		maxCount: maxCount,
		samples:  make([]SmoothedSample, 0, maxCount),
	}
}

// Append adds s and enforces both bounds relative to s.Timestamp. A sample
// older than the newest one is dropped and Append returns false.
func (h *HistoryTrail) Append(s SmoothedSample) bool {
	if n := len(h.samples); n > 0 && s.Timestamp.Before(h.samples[n-1].Timestamp) {
		return false
	}
	h.samples = append(h.samples, s)
	h.Prune(s.Timestamp)
	return true
}

// Prune evicts samples with now - timestamp > maxAge, then the oldest
// samples beyond maxCount.
func (h *HistoryTrail) Prune(now time.Time) {
	drop := 0
	for drop < len(h.samples) && now.Sub(h.samples[drop].Timestamp) > h.maxAge {
		drop++
	}
	if over := len(h.samples) - drop - h.maxCount; over > 0 {
		drop += over
	}
	if drop > 0 {
		h.samples = slices.Delete(h.samples, 0, drop)
	}
}

// Snapshot returns a copy of the trail, oldest first.
func (h *HistoryTrail) Snapshot() []SmoothedSample {
	return slices.Clone(h.samples)
}

// Len returns the number of samples held.
func (h *HistoryTrail) Len() int {
	return len(h.samples)
}

// Clear removes every sample.
func (h *HistoryTrail) Clear() {
	h.samples = h.samples[:0]
}
