package util

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultInterval is the politeness delay between two requests to the site.
const DefaultInterval = 5 * time.Second

// Governor is the single gate every outbound request passes through. Only one
// request is in flight at a time, and a new one starts no sooner than interval
// after the previous one completed.
type Governor struct {
	interval time.Duration
	lim      *rate.Limiter
	sem      *semaphore.Weighted

	// guarded by sem
	lastDone time.Time
}

func NewGovernor(interval time.Duration) *Governor {
	if interval < 0 {
		interval = 0
	}
	return &Governor{
		interval: interval,
		lim:      rate.NewLimiter(rate.Every(interval), 1),
		sem:      semaphore.NewWeighted(1),
	}
}

func (g *Governor) Interval() time.Duration { return g.interval }

// Acquire blocks until the caller may start a request. The returned release
// must be called once the request has completed; it is safe to call twice.
// A cancelled ctx aborts the wait and is reported as the error.
func (g *Governor) Acquire(ctx context.Context) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	// start-to-start pacing
	if err := g.lim.Wait(ctx); err != nil {
		g.sem.Release(1)
		return nil, err
	}
	// completion-to-start spacing
	if !g.lastDone.IsZero() {
		if d := g.interval - time.Since(g.lastDone); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				g.sem.Release(1)
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	if err := ctx.Err(); err != nil {
		g.sem.Release(1)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.lastDone = time.Now()
			g.sem.Release(1)
		})
	}, nil
}
