package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/phrazzld/pulseboard-api/internal/api"
	"github.com/phrazzld/pulseboard-api/internal/api/shared"
	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per client IP. Idle buckets are
// evicted by a janitor goroutine that runs until Stop is called.
type RateLimiter struct {
	limit      rate.Limit
	burst      int
	retryAfter int
	ttl        time.Duration
	now        func() time.Time

	mu      sync.Mutex
	clients map[string]*client

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client with the given burst.
// Buckets idle for longer than ttl are dropped.
func NewRateLimiter(perMinute, burst int, ttl time.Duration) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	l := &RateLimiter{
		limit:      rate.Limit(float64(perMinute) / 60),
		burst:      burst,
		retryAfter: int(math.Ceil(60 / float64(perMinute))),
		ttl:        ttl,
		now:        time.Now,
		clients:    make(map[string]*client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Limit rejects requests beyond the client's allowance with 429.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientKey(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter))
			shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests,
				api.KindRateLimited, "Too many requests, slow down", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stop ends the janitor goroutine. It is safe to call more than once.
func (l *RateLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		<-l.done
	})
}

// Clients returns the number of tracked client buckets.
func (l *RateLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	now := l.now()
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *RateLimiter) janitor() {
	defer close(l.done)
	interval := l.ttl / 2
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

func (l *RateLimiter) evictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.ttl)
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

// clientKey identifies the caller by IP. RealIP middleware upstream has
// already replaced RemoteAddr when a trusted proxy header is present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
