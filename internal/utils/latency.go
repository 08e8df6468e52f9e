package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps a bounded ring of recent duration samples and computes
// percentiles over them. Safe for concurrent use.
type LatencyTracker struct {
	mu   sync.RWMutex
	ring []time.Duration
	next int
	full bool
}

// NewLatencyTracker creates a tracker retaining the last maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{ring: make([]time.Duration, maxSize)}
}

// Observe records a new duration, evicting the oldest sample once full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ring[l.next] = d
	l.next++
	if l.next == len(l.ring) {
		l.next = 0
		l.full = true
	}
}

// Percentile returns the duration at percentile p (0-100), or zero when no
// samples have been recorded.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	samples := l.snapshot()
	l.mu.RUnlock()

	if len(samples) == 0 {
		return 0
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	index := int((p / 100.0) * float64(len(samples)-1))
	return samples[index]
}

// Count returns the number of retained samples.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.full {
		return len(l.ring)
	}
	return l.next
}

func (l *LatencyTracker) snapshot() []time.Duration {
	if l.full {
		return append([]time.Duration(nil), l.ring...)
	}
	return append([]time.Duration(nil), l.ring[:l.next]...)
}
