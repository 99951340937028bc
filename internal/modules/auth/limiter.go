package auth

import (
	"sync"
	"time"
)

// LoginLimiter counts login attempts per IP inside a sliding window. An
// attempt is reserved before the password is checked, so concurrent
// guesses cannot all slip past the limit.
type LoginLimiter struct {
	mu        sync.Mutex
	attempts  map[string][]time.Time
	max       int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewLoginLimiter allows max failures per window before locking an IP out.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
	}
}

// Take reserves one attempt for ip and reports whether it is allowed. A
// reserved attempt counts as a failure until Reset or Release drops it.
func (l *LoginLimiter) Take(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	hits := l.prune(ip, now)
	if len(hits) >= l.max {
		return false
	}
	l.attempts[ip] = append(hits, now)
	return true
}

// Release gives back the most recent reservation for ip, for attempts that
// ended without a verdict on the credentials.
func (l *LoginLimiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.attempts[ip]
	switch len(hits) {
	case 0:
	case 1:
		delete(l.attempts, ip)
	default:
		l.attempts[ip] = hits[:len(hits)-1]
	}
}

// Reset forgets all attempts for ip after a successful login.
func (l *LoginLimiter) Reset(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, ip)
}

// Len reports how many IPs are currently tracked.
func (l *LoginLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}

// prune drops attempts of ip older than the window. Callers hold l.mu.
func (l *LoginLimiter) prune(ip string, now time.Time) []time.Time {
	hits := l.attempts[ip]
	if len(hits) == 0 {
		return nil
	}
	cutoff := now.Add(-l.window)
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.attempts, ip)
		return nil
	}
	l.attempts[ip] = kept
	return kept
}

// sweep prunes every IP at most once per window. Callers hold l.mu.
func (l *LoginLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for ip := range l.attempts {
		l.prune(ip, now)
	}
}
