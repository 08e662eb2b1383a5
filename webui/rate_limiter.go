package webui

import (
	"context"
	"sync"
	"time"
)

// attempts is one client's count within the current window.
type attempts struct {
	count   int
	resetAt time.Time
}

func (a attempts) expired(now time.Time) bool {
	return now.After(a.resetAt)
}

// RateLimiter counts events per client IP in a fixed window. Once a client
// reaches maxAttempts it is blocked for the block duration.
type RateLimiter struct {
	mu          sync.RWMutex
	now         func() time.Time
	attempts    map[string]attempts
	maxAttempts int
	window      time.Duration
	block       time.Duration
}

// NewRateLimiter creates a RateLimiter.
func NewRateLimiter(maxAttempts int, window, block time.Duration) *RateLimiter {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RateLimiter{
		now:         time.Now,
		attempts:    make(map[string]attempts),
		maxAttempts: maxAttempts,
		window:      window,
		block:       block,
	}
}

// Allow reports whether ip may proceed, and if not, how long until it may.
func (r *RateLimiter) Allow(ip string) (bool, time.Duration) {
	r.mu.RLock()
	record, exists := r.attempts[ip]
	r.mu.RUnlock()

	now := r.now()
	if !exists || record.expired(now) || record.count < r.maxAttempts {
		return true, 0
	}
	return false, record.resetAt.Sub(now)
}

// RecordAttempt counts one event for ip.
func (r *RateLimiter) RecordAttempt(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	record, exists := r.attempts[ip]
	if !exists || record.expired(now) {
		record = attempts{resetAt: now.Add(r.window)}
	}
	record.count++

	// the block starts at the attempt that reaches the limit
	if record.count == r.maxAttempts {
		record.resetAt = now.Add(r.block)
	}
	r.attempts[ip] = record
}

// Take is Allow followed by RecordAttempt when allowed.
func (r *RateLimiter) Take(ip string) (bool, time.Duration) {
	allowed, wait := r.Allow(ip)
	if allowed {
		r.RecordAttempt(ip)
	}
	return allowed, wait
}

// Reset forgets ip.
func (r *RateLimiter) Reset(ip string) {
	r.mu.Lock()
	delete(r.attempts, ip)
	r.mu.Unlock()
}

// Cleanup removes expired records and returns how many were removed.
func (r *RateLimiter) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for ip, record := range r.attempts {
		if record.expired(now) {
			delete(r.attempts, ip)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker runs Cleanup every interval until ctx is cancelled.
func (r *RateLimiter) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Cleanup()
			}
		}
	}()
}

// Count returns the number of tracked IPs.
func (r *RateLimiter) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.attempts)
}
