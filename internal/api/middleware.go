package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter throttles requests per remote address. Entries idle for
// longer than staleAfter are evicted on the next sweep.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientEntry
	rps     rate.Limit
	burst   int
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const staleAfter = 10 * time.Minute

// NewClientLimiter returns a limiter allowing rps requests per second with
// the given burst per client. A nil limiter disables throttling.
func NewClientLimiter(rps float64, burst int) *clientLimiter {
	if rps <= 0 {
		return nil
	}
	return &clientLimiter{
		clients: make(map[string]*clientEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

func (l *clientLimiter) allow(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, ok := l.clients[host]
	if !ok {
		l.sweepLocked(now)
		entry = &clientEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[host] = entry
	}
	entry.lastSeen = now

	return entry.limiter.Allow()
}

func (l *clientLimiter) sweepLocked(now time.Time) {
	for host, entry := range l.clients {
		if now.Sub(entry.lastSeen) > staleAfter {
			delete(l.clients, host)
		}
	}
}

func (s *HTTPServer) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(r.RemoteAddr) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}
