// Package observability provides per-run statistics for pipeline monitoring.
package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunStats tracks counters for one pipeline invocation.
type RunStats struct {
	mu       sync.Mutex
	runID    string
	started  time.Time
	counters map[string]int
}

// Counter names used by the pipeline.
const (
	CounterFetched  = "fetched"
	CounterCached   = "cached"
	CounterMerged   = "merged"
	CounterUploaded = "uploaded"
	CounterSkipped  = "skipped"
	CounterFailed   = "failed"
)

// NewRunStats creates a tracker with a fresh run ID.
func NewRunStats() *RunStats {
	return &RunStats{
		runID:    uuid.NewString(),
		started:  time.Now(),
		counters: make(map[string]int),
	}
}

// RunID returns the unique ID of this run for log correlation.
func (r *RunStats) RunID() string {
	return r.runID
}

// Add increments a counter by n.
func (r *RunStats) Add(counter string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[counter] += n
}

// Get returns the current value of a counter.
func (r *RunStats) Get(counter string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[counter]
}

// Summary returns a one-line summary for the end-of-run log.
func (r *RunStats) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("run %s: fetched=%d cached=%d merged=%d uploaded=%d skipped=%d failed=%d elapsed=%s",
		r.runID,
		r.counters[CounterFetched],
		r.counters[CounterCached],
		r.counters[CounterMerged],
		r.counters[CounterUploaded],
		r.counters[CounterSkipped],
		r.counters[CounterFailed],
		time.Since(r.started).Round(time.Millisecond),
	)
}
