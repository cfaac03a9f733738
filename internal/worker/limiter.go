package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key: a remote host for batch
// loads, a client address for the HTTP API
type Limiter struct {
	limiters     map[string]*bucket
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
	pinned   bool         // set by SetRate, never swept
}

// NewLimiter creates a limiter. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*bucket),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until key has a token or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

// Allow reports whether key has a token now, consuming it if so
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

func (l *Limiter) get(key string) *rate.Limiter {
	now := time.Now().UnixNano()

	l.mu.RLock()
	b, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		b.lastSeen.Store(now)
		return b.limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if b, exists := l.limiters[key]; exists {
		b.lastSeen.Store(now)
		return b.limiter
	}

	b = &bucket{limiter: rate.NewLimiter(l.defaultRate, l.defaultBurst)}
	b.lastSeen.Store(now)
	l.limiters[key] = b

	return b.limiter
}

// SetRate overrides the rate for one key. A non-positive rate lifts the
// limit for that key; a non-positive burst keeps the default burst.
func (l *Limiter) SetRate(key string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	b := &bucket{limiter: rate.NewLimiter(limit, burst), pinned: true}
	b.lastSeen.Store(time.Now().UnixNano())
	l.limiters[key] = b
}

// Sweep drops buckets unused for longer than idle and returns how many
// were dropped. Keys configured with SetRate are kept.
func (l *Limiter) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle).UnixNano()

	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	for key, b := range l.limiters {
		if !b.pinned && b.lastSeen.Load() < cutoff {
			delete(l.limiters, key)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}

// HostKey returns the host of rawURL for per-host limiting
func HostKey(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return parsed.Host, nil
}
