package engine

import (
	"sync"
	"time"
)

// Stats accumulates an engine's Metrics under a lock. Engines record every
// Translate outcome; Snapshot returns a copy safe to hand out. The zero
// value is ready to use.
type Stats struct {
	mu sync.Mutex
	m  Metrics
}

// Record folds one translation outcome into the running averages.
func (s *Stats) Record(ok bool, confidence float64, elapsed time.Duration, cost float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m.TotalRequests++
	n := float64(s.m.TotalRequests)
	s.m.AvgProcessingMs = ((s.m.AvgProcessingMs * (n - 1)) + float64(elapsed.Milliseconds())) / n
	s.m.LastUsed = time.Now()

	if !ok {
		s.m.Failed++
		return
	}
	s.m.Succeeded++
	k := float64(s.m.Succeeded)
	s.m.AvgConfidence = ((s.m.AvgConfidence * (k - 1)) + confidence) / k
	s.m.TotalCost += cost
}

// RecordError counts a failure under a short error class label.
func (s *Stats) RecordError(class string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m.ErrorCounts == nil {
		s.m.ErrorCounts = make(map[string]int64)
	}
	s.m.ErrorCounts[class]++
}

// RecordCache counts a cache lookup.
func (s *Stats) RecordCache(hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hit {
		s.m.CacheHits++
	} else {
		s.m.CacheMisses++
	}
}

// Snapshot returns a copy of the current metrics.
func (s *Stats) Snapshot() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.m
	if s.m.ErrorCounts != nil {
		out.ErrorCounts = make(map[string]int64, len(s.m.ErrorCounts))
		for k, v := range s.m.ErrorCounts {
			out.ErrorCounts[k] = v
		}
	}
	return out
}
