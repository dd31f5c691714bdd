// Package health tracks per-endpoint success and failure counts so that
// flaky upstream RPC endpoints show up in the status endpoint. It is
// observability only and never gates a request.
package health

import (
	"sync"
	"time"
)

// EndpointStats holds the accumulated counters for one endpoint URL.
type EndpointStats struct {
	Successes   uint64    `json:"successes"`
	Failures    uint64    `json:"failures"`
	LastError   string    `json:"lastError,omitempty"`
	LastChecked time.Time `json:"lastChecked"`
}

// Tracker records fetch outcomes per endpoint. Safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*EndpointStats
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		stats: make(map[string]*EndpointStats),
	}
}

// RecordSuccess counts a successful response from an endpoint.
func (t *Tracker) RecordSuccess(endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.get(endpoint)
	s.Successes++
	s.LastError = ""
	s.LastChecked = time.Now().UTC()
}

// RecordFailure counts a failed attempt against an endpoint and remembers
// the error for diagnostics.
func (t *Tracker) RecordFailure(endpoint string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.get(endpoint)
	s.Failures++
	if err != nil {
		s.LastError = err.Error()
	}
	s.LastChecked = time.Now().UTC()
}

// Snapshot returns a copy of the current stats keyed by endpoint URL.
func (t *Tracker) Snapshot() map[string]EndpointStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := make(map[string]EndpointStats, len(t.stats))
	for endpoint, s := range t.stats {
		snapshot[endpoint] = *s
	}
	return snapshot
}

// get returns the stats entry for an endpoint, creating it if needed.
// Caller must hold the write lock.
func (t *Tracker) get(endpoint string) *EndpointStats {
	s, ok := t.stats[endpoint]
	if !ok {
		s = &EndpointStats{}
		t.stats[endpoint] = s
	}
	return s
}
