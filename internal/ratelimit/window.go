// Package ratelimit implements a per-caller sliding-window admission gate.
// Each caller key tracks its request timestamps inside a trailing window;
// a request is admitted only while the in-window count is below the ceiling.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Decision is the outcome of one admission check.
type Decision struct {
	// Whether the request may proceed
	Allowed bool

	// Admissions left in the window after this check
	Remaining int

	// On rejection, how long until the oldest in-window request falls
	// out of the window and a retry can succeed
	RetryAfter time.Duration
}

// Gate tracks per-caller request timestamps over a sliding window.
// All methods are safe for concurrent use.
type Gate struct {
	mu      sync.Mutex
	ceiling int
	window  time.Duration
	callers map[string][]time.Time

	// now is replaceable in tests
	now func() time.Time
}

// NewGate creates a gate admitting at most ceiling requests per caller key
// within the trailing window.
func NewGate(ceiling int, window time.Duration) *Gate {
	return &Gate{
		ceiling: ceiling,
		window:  window,
		callers: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Admit checks whether a request from the given caller may proceed, and if
// so records it. Timestamps older than the window are dropped lazily on
// each check. The gate never admits a request that would push the in-window
// count past the ceiling, including under concurrent checks from the same
// caller.
func (g *Gate) Admit(key string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cutoff := now.Add(-g.window)

	timestamps := g.callers[key]
	pruned := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}

	if len(pruned) >= g.ceiling {
		g.callers[key] = pruned
		// With a zero ceiling there is no in-window entry to wait out;
		// the full window is the honest retry hint
		retryAfter := g.window
		if len(pruned) > 0 {
			retryAfter = pruned[0].Add(g.window).Sub(now)
		}
		if retryAfter < 0 {
			retryAfter = 0
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
	}

	g.callers[key] = append(pruned, now)
	return Decision{Allowed: true, Remaining: g.ceiling - len(pruned) - 1}
}

// Sweep removes callers whose newest timestamp has left the window. Bounds
// memory for callers that stopped sending requests.
func (g *Gate) Sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-g.window)
	removed := 0
	for key, timestamps := range g.callers {
		if len(timestamps) == 0 || !timestamps[len(timestamps)-1].After(cutoff) {
			delete(g.callers, key)
			removed++
		}
	}
	if removed > 0 {
		logrus.Debugf("Rate gate swept %d idle caller(s), %d remaining", removed, len(g.callers))
	}
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (g *Gate) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.Sweep()
			}
		}
	}()
}

// Callers returns the number of tracked caller keys.
func (g *Gate) Callers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.callers)
}
