// Package fsstats tracks operation admission and cumulative filesystem
// statistics for the asyncfs engine. A single Registry instance is shared
// by all operations; every method is safe for concurrent use and holds the
// lock only for constant-time counter updates.
package fsstats

import "sync"

// Snapshot is a consistent copy of all counters, taken under a single lock
// acquisition.
type Snapshot struct {
	ActiveOperations  int
	PeakOperations    int
	QueuedOperations  int
	TotalReads        uint64
	TotalWrites       uint64
	TotalBytesRead    uint64
	TotalBytesWritten uint64
	FailedOperations  int
}

// Registry is the process-wide admission gate and statistics store.
type Registry struct {
	mu    sync.Mutex
	limit int

	active int
	peak   int
	queued int

	totalReads   uint64
	totalWrites  uint64
	bytesRead    uint64
	bytesWritten uint64
	failed       int
}

// New creates a registry admitting at most limit concurrent operations.
func New(limit int) *Registry {
	return &Registry{limit: limit}
}

// TryAdmit atomically tests the concurrency ceiling. On success the active
// count is incremented (and peak updated); on rejection there is no side
// effect.
func (r *Registry) TryAdmit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active >= r.limit {
		return false
	}
	r.active++
	if r.active > r.peak {
		r.peak = r.active
	}
	return true
}

// Release returns an admission slot, flooring at zero.
func (r *Registry) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active > 0 {
		r.active--
	}
}

// CanAccept reports whether a new operation would currently be admitted.
func (r *Registry) CanAccept() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active < r.limit
}

// Active returns the in-flight operation count.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Limit returns the admission ceiling.
func (r *Registry) Limit() int {
	return r.limit
}

// RecordRead accounts one successful read of n bytes.
func (r *Registry) RecordRead(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalReads++
	r.bytesRead += uint64(n)
}

// RecordWrite accounts one successful write of n bytes.
func (r *Registry) RecordWrite(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalWrites++
	r.bytesWritten += uint64(n)
}

// RecordFailure accounts one terminal operation failure.
func (r *Registry) RecordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
}

// Snapshot returns a consistent copy of all counters.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		ActiveOperations:  r.active,
		PeakOperations:    r.peak,
		QueuedOperations:  r.queued,
		TotalReads:        r.totalReads,
		TotalWrites:       r.totalWrites,
		TotalBytesRead:    r.bytesRead,
		TotalBytesWritten: r.bytesWritten,
		FailedOperations:  r.failed,
	}
}

// Reset zeroes the cumulative counters. The active and peak counts are left
// alone: in-flight operations are not history.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalReads = 0
	r.totalWrites = 0
	r.bytesRead = 0
	r.bytesWritten = 0
	r.failed = 0
}
