// Package ratelimit provides per-client token buckets for HTTP endpoints
// that do expensive work on a caller's behalf.
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"
)

// Config configures a Limiter.
type Config struct {
	Enabled bool `yaml:"enabled"`
	// RequestsPerSecond is the refill rate of every bucket.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Burst is the bucket capacity.
	Burst int `yaml:"burst"`
}

// DefaultConfig allows short bursts of preview lookups and sign-ins.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		RequestsPerSecond: 2,
		Burst:             10,
	}
}

const (
	defaultMaxKeys = 10000
	idleTime       = 10 * time.Minute
)

type bucket struct {
	tokens   float64
	updated  time.Time
	lastSeen time.Time
}

// Limiter holds one token bucket per key.
type Limiter struct {
	cfg     Config
	now     func() time.Time
	maxKeys int

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewLimiter returns a limiter; non-positive rates fall back to defaults.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(1, int(math.Ceil(cfg.RequestsPerSecond)))
	}
	return &Limiter{cfg: cfg, now: time.Now, maxKeys: defaultMaxKeys, buckets: make(map[string]*bucket)}
}

// Allow consumes a token for key. When none is available it reports how long
// until the next one.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l == nil || !l.cfg.Enabled {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.maxKeys {
			l.evictLocked(now)
		}
		b = &bucket{tokens: float64(l.cfg.Burst), updated: now}
		l.buckets[key] = b
	}
	b.lastSeen = now

	elapsed := now.Sub(b.updated).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(float64(l.cfg.Burst), b.tokens+elapsed*l.cfg.RequestsPerSecond)
		b.updated = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / l.cfg.RequestsPerSecond * float64(time.Second))
	return false, wait
}

// evictLocked drops idle buckets. When none is idle it drops the least
// recently seen tenth.
func (l *Limiter) evictLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleTime {
			delete(l.buckets, key)
		}
	}
	if len(l.buckets) < l.maxKeys {
		return
	}
	keys := make([]string, 0, len(l.buckets))
	for key := range l.buckets {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return l.buckets[a].lastSeen.Compare(l.buckets[b].lastSeen)
	})
	for _, key := range keys[:max(1, len(keys)/10)] {
		delete(l.buckets, key)
	}
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over the limit with 429 and a Retry-After
// header. key picks the bucket; nil means ClientIP.
func Middleware(l *Limiter, key func(*http.Request) string) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.Allow(key(r))
			if !ok {
				seconds := max(1, int(math.Ceil(wait.Seconds())))
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
