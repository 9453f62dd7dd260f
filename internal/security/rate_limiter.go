package security

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/textmill/textmill/internal/config"
)

// RateLimiter applies a per-client token bucket for DoS protection
type RateLimiter struct {
	config   *config.ServerConfig
	limiters map[string]*clientLimiter
	mu       sync.RWMutex
}

// clientLimiter tracks one client's limiter and its last use for cleanup.
// lastSeen holds UnixNano and is touched atomically because concurrent
// requests for the same IP update it under the map's read lock.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

func (cl *clientLimiter) touch() {
	cl.lastSeen.Store(time.Now().UnixNano())
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.ServerConfig) *RateLimiter {
	return &RateLimiter{
		config:   cfg,
		limiters: make(map[string]*clientLimiter),
	}
}

// Allow checks if a request from the given client IP is allowed
func (r *RateLimiter) Allow(clientIP string) bool {
	if !r.config.RateLimit.Enabled {
		return true
	}

	return r.getLimiter(clientIP).Allow()
}

// getLimiter gets or creates the limiter for a client IP
func (r *RateLimiter) getLimiter(clientIP string) *rate.Limiter {
	r.mu.RLock()
	cl, exists := r.limiters[clientIP]
	r.mu.RUnlock()

	if exists {
		cl.touch()
		return cl.limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if cl, exists := r.limiters[clientIP]; exists {
		cl.touch()
		return cl.limiter
	}

	cl = &clientLimiter{
		limiter: rate.NewLimiter(rate.Limit(r.config.RateLimit.RequestsPerSec), r.config.RateLimit.Burst),
	}
	cl.touch()
	r.limiters[clientIP] = cl
	return cl.limiter
}

// CleanupOldLimiters removes limiters idle for over an hour to bound memory
func (r *RateLimiter) CleanupOldLimiters() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-time.Hour).UnixNano()
	for ip, cl := range r.limiters {
		if cl.lastSeen.Load() < cutoff {
			delete(r.limiters, ip)
		}
	}
}

// StartCleanupRoutine starts a background routine to clean up idle limiters
func (r *RateLimiter) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			r.CleanupOldLimiters()
		}
	}()
}
