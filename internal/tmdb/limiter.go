package tmdb

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow allows at most limit acquisitions in any window-long interval.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	if limit <= 0 {
		limit = 35
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		stamps: make([]time.Time, 0, limit),
		now:    time.Now,
	}
}

// reserve records an acquisition and returns 0 when a slot is free, otherwise
// how long until the oldest stamp leaves the window.
func (l *SlidingWindow) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	expired := 0
	for expired < len(l.stamps) && !l.stamps[expired].After(cutoff) {
		expired++
	}
	if expired > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[expired:]...)
	}

	if len(l.stamps) < l.limit {
		l.stamps = append(l.stamps, now)
		return 0
	}
	return l.stamps[0].Add(l.window).Sub(now)
}

// Wait blocks until a slot is free or ctx is done.
func (l *SlidingWindow) Wait(ctx context.Context) error {
	for {
		wait := l.reserve()
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// InFlight reports the acquisitions still inside the window.
func (l *SlidingWindow) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	count := 0
	for _, stamp := range l.stamps {
		if stamp.After(cutoff) {
			count++
		}
	}
	return count
}
