package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/cimillas/storefront/services/api/internal/clock"
	"golang.org/x/time/rate"
)

const defaultIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory keeps one token bucket per key in process memory. Buckets idle for
// longer than the idle TTL are dropped on the next sweep.
type Memory struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	clock     clock.Clock
	lastSweep time.Time
}

func NewMemory(rps float64, burst int, clk clock.Clock) *Memory {
	if burst < 1 {
		burst = 1
	}
	return &Memory{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(rps),
		burst:     burst,
		idleTTL:   defaultIdleTTL,
		clock:     clk,
		lastSweep: clk.Now(),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= m.idleTTL {
		m.sweep(now)
	}

	v, ok := m.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1), nil
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}

func (m *Memory) sweep(now time.Time) {
	for key, v := range m.visitors {
		if now.Sub(v.lastSeen) >= m.idleTTL {
			delete(m.visitors, key)
		}
	}
	m.lastSweep = now
}
