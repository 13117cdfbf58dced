// Package service contains application services: the submission
// pipeline, the delivery worker, and runtime statistics.
package service

import (
	"sync"
	"sync/atomic"
)

// StatsService tracks runtime statistics using lock-free atomic
// counters. All counter operations are safe for concurrent access from
// multiple goroutines.
type StatsService struct {
	accepted   atomic.Int64
	rejected   atomic.Int64
	duplicates atomic.Int64
	delivered  atomic.Int64
	retried    atomic.Int64
	dead       atomic.Int64

	// Per-rejection-stage counters (mutex-protected map).
	mu          sync.Mutex
	stageCounts map[string]int64
}

// NewStatsService creates a StatsService with all counters at zero.
func NewStatsService() *StatsService {
	return &StatsService{
		stageCounts: make(map[string]int64),
	}
}

// RecordAccepted increments the accepted-submission counter.
func (s *StatsService) RecordAccepted() {
	s.accepted.Add(1)
}

// RecordRejected increments the rejected counter and the per-stage
// counter for the gate or validator that rejected the submission.
func (s *StatsService) RecordRejected(stage string) {
	s.rejected.Add(1)
	if stage == "" {
		return
	}
	s.mu.Lock()
	s.stageCounts[stage]++
	s.mu.Unlock()
}

// RecordDuplicate increments the duplicate-submission counter.
func (s *StatsService) RecordDuplicate() {
	s.duplicates.Add(1)
}

// RecordDelivered increments the delivered counter.
func (s *StatsService) RecordDelivered() {
	s.delivered.Add(1)
}

// RecordRetried increments the retried-attempt counter.
func (s *StatsService) RecordRetried() {
	s.retried.Add(1)
}

// RecordDead increments the dead-letter counter.
func (s *StatsService) RecordDead() {
	s.dead.Add(1)
}

// Stats holds a snapshot of all counters at a point in time.
type Stats struct {
	Accepted    int64            `json:"accepted"`
	Rejected    int64            `json:"rejected"`
	Duplicates  int64            `json:"duplicates"`
	Delivered   int64            `json:"delivered"`
	Retried     int64            `json:"retried"`
	Dead        int64            `json:"dead"`
	StageCounts map[string]int64 `json:"stage_counts"`
}

// Snapshot returns a consistent copy of the current counters.
func (s *StatsService) Snapshot() Stats {
	s.mu.Lock()
	stages := make(map[string]int64, len(s.stageCounts))
	for k, v := range s.stageCounts {
		stages[k] = v
	}
	s.mu.Unlock()

	return Stats{
		Accepted:    s.accepted.Load(),
		Rejected:    s.rejected.Load(),
		Duplicates:  s.duplicates.Load(),
		Delivered:   s.delivered.Load(),
		Retried:     s.retried.Load(),
		Dead:        s.dead.Load(),
		StageCounts: stages,
	}
}
