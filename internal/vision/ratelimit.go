package vision

import (
	"context"
	"sync"
	"time"
)

// rpmLimiter enforces a rolling-window requests-per-minute cap plus a
// minimum spacing between consecutive requests.
type rpmLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	minInterval time.Duration
	sent        []time.Time
	last        time.Time
}

func newRPMLimiter(rpm int) *rpmLimiter {
	if rpm <= 0 {
		rpm = 1
	}
	return &rpmLimiter{
		limit:       rpm,
		window:      time.Minute,
		minInterval: time.Minute / time.Duration(rpm),
	}
}

// Wait blocks until a request may be sent, or until ctx is done.
func (l *rpmLimiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()

		// Drop entries outside the rolling window.
		kept := l.sent[:0]
		for _, t := range l.sent {
			if now.Sub(t) < l.window {
				kept = append(kept, t)
			}
		}
		l.sent = kept

		var sleep time.Duration
		if len(l.sent) >= l.limit {
			sleep = l.window - now.Sub(l.sent[0])
		} else if since := now.Sub(l.last); since < l.minInterval {
			sleep = l.minInterval - since
		}

		if sleep <= 0 {
			l.last = now
			l.sent = append(l.sent, now)
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
