package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

type memoryState struct {
	tokens float64
	last   time.Time
}

// MemoryBucket is a process-local token bucket used when redis is not configured.
// Limits are per replica.
type MemoryBucket struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*memoryState
}

func NewMemoryBucket(now func() time.Time) *MemoryBucket {
	if now == nil {
		now = time.Now
	}
	return &MemoryBucket{now: now, buckets: map[string]*memoryState{}}
}

func (m *MemoryBucket) Allow(_ context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	if err := validateArgs(key, rate, burst); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evictIdle(now, rate, burst)

	state, ok := m.buckets[key]
	if !ok {
		state = &memoryState{tokens: float64(burst), last: now}
		m.buckets[key] = state
	} else if elapsed := now.Sub(state.last).Seconds(); elapsed > 0 {
		state.tokens = math.Min(float64(burst), state.tokens+elapsed*rate)
		state.last = now
	}

	allowed := state.tokens >= 1
	if allowed {
		state.tokens--
	}
	return newResult(allowed, state.tokens, rate, burst), nil
}

// evictIdle drops buckets that would be full again, keeping the map bounded.
func (m *MemoryBucket) evictIdle(now time.Time, rate float64, burst int) {
	ttl := bucketTTL(rate, burst)
	for key, state := range m.buckets {
		if now.Sub(state.last) > ttl {
			delete(m.buckets, key)
		}
	}
}
