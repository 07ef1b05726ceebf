// Package ratelimit implements a fixed-window request limiter.
package ratelimit

import (
	"sync"
	"time"
)

type Result struct {
	Success    bool
	Remaining  int
	Reset      time.Time
	// RetryAfter is how long a rejected caller waits for the next window.
	RetryAfter time.Duration
}

type window struct {
	start  time.Time
	period time.Duration
	count  int
}

// Limiter counts requests per (bucket, identifier) in fixed windows.
// Closed windows are swept at most once per the shortest period seen.
type Limiter struct {
	mu        sync.Mutex
	now       func() time.Time
	windows   map[string]*window
	minPeriod time.Duration
	nextSweep time.Time
}

func New(now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{now: now, windows: make(map[string]*window)}
}

func (l *Limiter) Enforce(identifier string, limit int, period time.Duration, bucketKey string) Result {
	now := l.now()
	key := bucketKey + "\x00" + identifier

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.minPeriod == 0 || period < l.minPeriod {
		l.minPeriod = period
		if next := now.Add(period); next.Before(l.nextSweep) {
			l.nextSweep = next
		}
	}
	if !now.Before(l.nextSweep) {
		l.sweep(now)
		l.nextSweep = now.Add(l.minPeriod)
	}

	w, ok := l.windows[key]
	if !ok || !now.Before(w.start.Add(period)) {
		w = &window{start: now.Truncate(period), period: period}
		l.windows[key] = w
	}
	reset := w.start.Add(period)
	if w.count >= limit {
		return Result{Success: false, Remaining: 0, Reset: reset, RetryAfter: reset.Sub(now)}
	}
	w.count++
	return Result{Success: true, Remaining: limit - w.count, Reset: reset}
}

// sweep drops windows that closed before now. Called with mu held.
func (l *Limiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.start.Add(w.period)) {
			delete(l.windows, k)
		}
	}
}
