package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a per-key sliding-window limiter held in process memory.
type Memory struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates a limiter and starts the background eviction goroutine.
func NewMemory(limit int, window time.Duration) *Memory {
	m := &Memory{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	m.startEviction()
	return m
}

// Allow records an attempt for key and reports whether it fits the budget.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	recent := m.fresh(m.requests[key], now)

	if len(recent) >= m.limit {
		m.requests[key] = recent
		return false, nil
	}

	m.requests[key] = append(recent, now)
	return true, nil
}

// Close stops the eviction goroutine.
func (m *Memory) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Memory) fresh(times []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-m.window)
	var out []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// startEviction periodically drops keys whose attempts have all aged out.
func (m *Memory) startEviction() {
	go func() {
		ticker := time.NewTicker(m.window)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.mu.Lock()
				now := m.now()
				for key, times := range m.requests {
					if fresh := m.fresh(times, now); len(fresh) == 0 {
						delete(m.requests, key)
					} else {
						m.requests[key] = fresh
					}
				}
				m.mu.Unlock()
			case <-m.stop:
				return
			}
		}
	}()
}
