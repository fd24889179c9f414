package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type clientRecord struct {
	Count        int
	WindowStart  time.Time
	LastSeen     time.Time
	BlockedUntil time.Time
	Strikes      int
}

// SubmissionLimiter caps conversion requests per client within a fixed
// window. Clients that keep hitting the cap are blocked for increasingly
// long periods taken from the backoff.
type SubmissionLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientRecord
	limit    int
	window   time.Duration
	penalty  *Backoff
	now      func() time.Time
	idleTTL  time.Duration
	interval time.Duration
}

// NewSubmissionLimiter allows limit submissions per window. A limit of zero
// or less disables limiting.
func NewSubmissionLimiter(limit int, window time.Duration) *SubmissionLimiter {
	return &SubmissionLimiter{
		clients:  make(map[string]*clientRecord),
		limit:    limit,
		window:   window,
		penalty:  NewBackoff(window, 16*window, 2.0),
		now:      time.Now,
		idleTTL:  32 * window,
		interval: time.Minute,
	}
}

func (l *SubmissionLimiter) Enabled() bool {
	return l != nil && l.limit > 0
}

// Allow records a submission for clientID. When the client is over its
// limit it returns false and how long it has to wait.
func (l *SubmissionLimiter) Allow(clientID string) (bool, time.Duration) {
	if !l.Enabled() {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	record, exists := l.clients[clientID]
	if !exists {
		record = &clientRecord{WindowStart: now}
		l.clients[clientID] = record
	}
	record.LastSeen = now

	if now.Before(record.BlockedUntil) {
		return false, record.BlockedUntil.Sub(now)
	}

	if now.Sub(record.WindowStart) >= l.window {
		record.WindowStart = now
		record.Count = 0
	}

	record.Count++
	if record.Count > l.limit {
		record.Strikes++
		block := l.penalty.Duration(record.Strikes)
		record.BlockedUntil = now.Add(block)
		return false, block
	}

	return true, 0
}

// Run evicts idle clients until ctx is done.
func (l *SubmissionLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

func (l *SubmissionLimiter) evictIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	evicted := 0
	for clientID, record := range l.clients {
		if now.Sub(record.LastSeen) > l.idleTTL && now.After(record.BlockedUntil) {
			delete(l.clients, clientID)
			evicted++
		}
	}
	return evicted
}

// ClientID identifies the caller by IP. Forwarding headers are only trusted
// when the server sits behind a reverse proxy.
func ClientID(r *http.Request, behindProxy bool) string {
	if behindProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
