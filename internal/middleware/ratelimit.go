package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Vasu1712/lounge-backend/internal/api/respond"
	"github.com/Vasu1712/lounge-backend/internal/metrics"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. A bucket holds
// attempts tokens and refills one every window/attempts, so a client gets
// attempts requests per window. X-Forwarded-For only picks the bucket when
// trustProxy is set.
type RateLimiter struct {
	mu         sync.Mutex
	m          map[string]*limiterEntry
	limit      rate.Limit
	burst      int
	ttl        time.Duration
	trustProxy bool
	stopOnce   sync.Once
	stopCh     chan struct{}
}

func NewRateLimiter(attempts int, window time.Duration, trustProxy bool) *RateLimiter {
	p := &RateLimiter{
		m:          make(map[string]*limiterEntry),
		limit:      rate.Every(window / time.Duration(attempts)),
		burst:      attempts,
		ttl:        window,
		trustProxy: trustProxy,
		stopCh:     make(chan struct{}),
	}
	go p.cleanupLoop(time.Minute)
	return p
}

func (p *RateLimiter) Allow(key string) bool {
	p.mu.Lock()
	e, ok := p.m[key]
	if !ok {
		e = &limiterEntry{l: rate.NewLimiter(p.limit, p.burst)}
		p.m[key] = e
	}
	e.lastSeen = time.Now()
	p.mu.Unlock()
	return e.l.Allow()
}

// Limit rejects requests over budget with 429.
func (p *RateLimiter) Limit(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.Allow(ClientIP(r, p.trustProxy)) {
			metrics.LoginRejections.WithLabelValues("rate_limited").Inc()
			respond.Message(w, http.StatusTooManyRequests, "too many "+name+" attempts, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stop ends the cleanup goroutine.
func (p *RateLimiter) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// A bucket idle for a full window is full again, so dropping it is lossless.
func (p *RateLimiter) cleanupLoop(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-p.ttl)
			p.mu.Lock()
			for k, e := range p.m {
				if e.lastSeen.Before(cutoff) {
					delete(p.m, k)
				}
			}
			p.mu.Unlock()
		case <-p.stopCh:
			return
		}
	}
}

// ClientIP is the peer address of the connection. With trustProxy the first
// X-Forwarded-For hop wins; only set it when a proxy in front rewrites the
// header, since clients can send any value.
func ClientIP(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
