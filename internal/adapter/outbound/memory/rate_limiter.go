// Package memory provides in-process implementations of outbound
// ports. The gateway runs as a single process, so in-memory state is
// the production implementation, not a test stub.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/protexis/ogx-gateway/internal/domain/ratelimit"
)

// RateLimiter implements ratelimit.Limiter with GCRA in memory.
// Safe for concurrent use. A background cleanup pass drops idle keys
// so the map does not grow without bound.
type RateLimiter struct {
	// tat holds the Theoretical Arrival Time per key.
	tat             map[string]time.Time
	mu              sync.Mutex
	stopChan        chan struct{}
	wg              sync.WaitGroup
	once            sync.Once
	cleanupInterval time.Duration
	maxIdle         time.Duration
}

// NewRateLimiter creates a rate limiter with default cleanup settings
// (sweep every 5 minutes, drop keys idle for over an hour).
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithConfig(5*time.Minute, time.Hour)
}

// NewRateLimiterWithConfig creates a rate limiter with custom cleanup
// settings: how often the sweep runs, and how long a key may sit idle
// before removal.
func NewRateLimiterWithConfig(cleanupInterval, maxIdle time.Duration) *RateLimiter {
	return &RateLimiter{
		tat:             make(map[string]time.Time),
		stopChan:        make(chan struct{}),
		cleanupInterval: cleanupInterval,
		maxIdle:         maxIdle,
	}
}

// Allow checks whether the request identified by key fits under limit.
// GCRA: each allowed request advances the key's Theoretical Arrival
// Time by one emission interval; a request is denied when the advanced
// TAT would run more than the burst allowance ahead of now.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit ratelimit.Limit) (ratelimit.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	if limit.Rate <= 0 {
		limit.Rate = 1
	}
	emission := limit.Period / time.Duration(limit.Rate)

	if limit.Burst <= 0 {
		limit.Burst = limit.Rate
	}
	burstOffset := time.Duration(limit.Burst) * emission

	tat, exists := r.tat[key]
	if !exists || tat.Before(now) {
		tat = now
	}

	// Tentatively advance the TAT. The request fits exactly when the
	// advanced TAT stays within burstOffset of now; comparing against
	// the pre-increment TAT would hand out Burst+1 immediate requests.
	newTAT := tat.Add(emission)
	if ahead := newTAT.Sub(now); ahead > burstOffset {
		return ratelimit.Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: ahead - burstOffset,
			ResetAfter: tat.Sub(now),
		}, nil
	}
	r.tat[key] = newTAT

	remaining := int((burstOffset - newTAT.Sub(now)) / emission)
	if remaining < 0 {
		remaining = 0
	}
	if remaining > limit.Burst {
		remaining = limit.Burst
	}

	return ratelimit.Decision{
		Allowed:    true,
		Remaining:  remaining,
		ResetAfter: newTAT.Sub(now),
	}, nil
}

// StartCleanup starts the background sweep goroutine. It stops when
// ctx is cancelled or Stop is called.
func (r *RateLimiter) StartCleanup(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			case <-ticker.C:
				r.cleanup()
			}
		}
	}()
}

// cleanup removes keys whose TAT is older than maxIdle.
func (r *RateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.maxIdle)
	cleaned := 0
	for key, tat := range r.tat {
		if tat.Before(cutoff) {
			delete(r.tat, key)
			cleaned++
		}
	}

	if cleaned > 0 {
		slog.Debug("rate limiter cleanup completed",
			"cleaned_keys", cleaned,
			"remaining_keys", len(r.tat))
	}
}

// Stop stops the cleanup goroutine and waits for it to exit.
// Safe to call multiple times.
func (r *RateLimiter) Stop() {
	r.once.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}

// Size returns the number of tracked keys. Used in tests.
func (r *RateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tat)
}

var _ ratelimit.Limiter = (*RateLimiter)(nil)
