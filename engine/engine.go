// Package engine implements non-blocking filesystem operations on top of an
// asynchronous I/O reactor. Public entry points validate their arguments,
// pass an admission gate, and immediately return; the outcome is delivered
// later through exactly one invocation of the caller's completion callback.
package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/ztrue/tracerr"
	"go.uber.org/zap"

	"github.com/rarydzu/asyncfs/engine/config"
	"github.com/rarydzu/asyncfs/fserr"
	"github.com/rarydzu/asyncfs/fsstats"
	"github.com/rarydzu/asyncfs/reactor"
)

// Synchronous entry-point failures. These are returned directly and never
// reported through a callback; callers must check both the immediate return
// and, when it is nil, await the callback.
var (
	ErrInvalidArgs     = errors.New("invalid arguments")
	ErrRejected        = errors.New("too many concurrent operations")
	ErrNotRunning      = errors.New("engine not running")
	ErrPayloadTooLarge = errors.New("payload exceeds maximum file size")
)

const drainPollInterval = 10 * time.Millisecond

// Engine sequences chained reactor steps into logical filesystem operations.
type Engine struct {
	cfg   *config.Config
	log   *zap.SugaredLogger
	re    reactor.Reactor
	stats *fsstats.Registry

	mu      sync.Mutex
	started bool
	ownPool *reactor.Pool
}

// New creates an engine from cfg. The configuration is copied, so later
// mutation of cfg does not affect the engine.
func New(cfg *config.Config, log *zap.SugaredLogger) (*Engine, error) {
	if cfg == nil || log == nil {
		return nil, ErrInvalidArgs
	}
	e := &Engine{
		cfg: &config.Config{},
		log: log,
	}
	if err := copier.Copy(e.cfg, cfg); err != nil {
		return nil, tracerr.Errorf("copying config failed: %w", err)
	}
	if e.cfg.MaxConcurrentOps <= 0 {
		e.cfg.MaxConcurrentOps = config.DefaultMaxConcurrentOps
	}
	if e.cfg.MaxFileSize <= 0 {
		e.cfg.MaxFileSize = config.DefaultMaxFileSize
	}
	if e.cfg.ShutdownTimeout <= 0 {
		e.cfg.ShutdownTimeout = config.DefaultShutdownTimeout
	}
	if e.cfg.Workers <= 0 {
		e.cfg.Workers = config.DefaultWorkers
	}
	e.stats = fsstats.New(e.cfg.MaxConcurrentOps)
	return e, nil
}

// Start brings the engine up. Calling Start on a running engine is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}
	if e.cfg.Reactor != nil {
		e.re = e.cfg.Reactor
	} else {
		// queue must cover every admitted operation so that chain steps
		// submitted from completion handlers are never rejected for space
		e.ownPool = reactor.NewPool(reactor.PoolConfig{
			Workers:       e.cfg.Workers,
			QueueSize:     2 * e.cfg.MaxConcurrentOps,
			IOBytesPerSec: e.cfg.IOBytesPerSec,
		}, e.log)
		e.re = e.ownPool
	}
	e.started = true
	return nil
}

// Shutdown stops admitting work, waits up to ShutdownTimeout for in-flight
// operations to drain, then tears down the engine-owned reactor. The
// teardown wait is bounded by the same budget: stuck or throttled I/O never
// holds Shutdown past it, the abandoned pool finishes draining in the
// background. Calling Shutdown on a stopped engine is a no-op.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	pool := e.ownPool
	e.ownPool = nil
	e.mu.Unlock()

	var waited time.Duration
	for e.stats.Active() > 0 && waited < e.cfg.ShutdownTimeout {
		time.Sleep(drainPollInterval)
		waited += drainPollInterval
	}
	if n := e.stats.Active(); n > 0 {
		e.log.Warnf("%d operations still active during shutdown", n)
	}
	if pool != nil {
		done := make(chan struct{})
		go func() {
			pool.Shutdown()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(e.cfg.ShutdownTimeout - waited):
			e.log.Warnf("reactor teardown still running after %s, abandoning wait", e.cfg.ShutdownTimeout)
		}
	}
	return nil
}

func (e *Engine) running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// Stats returns a consistent snapshot of the engine counters.
func (e *Engine) Stats() fsstats.Snapshot {
	return e.stats.Snapshot()
}

// ResetStats zeroes the cumulative counters, leaving active and peak alone.
func (e *Engine) ResetStats() {
	e.stats.Reset()
}

// CanAccept reports whether a new operation would currently be admitted.
func (e *Engine) CanAccept() bool {
	return e.stats.CanAccept()
}

// Registry exposes the underlying statistics registry, e.g. for wiring a
// metrics collector.
func (e *Engine) Registry() *fsstats.Registry {
	return e.stats
}

// closeQuietly closes a handle after a mid-chain failure. The close step's
// own outcome is deliberately not surfaced: avoiding the leak takes
// priority over reporting a secondary error.
func (e *Engine) closeQuietly(rec *record) {
	if rec.handle == nil {
		return
	}
	kind, path := rec.kind, rec.path
	e.re.Close(rec.handle, func(err error) {
		if err != nil {
			e.log.Debugf("%s %s: close after failure: %v", kind, path, err)
		}
	})
	rec.handle = nil
}

// translate maps a step failure to its taxonomy error, distinguishing a
// reactor torn down mid-flight from ordinary I/O failures.
func (e *Engine) translate(err error) *fserr.Error {
	if errors.Is(err, reactor.ErrClosed) {
		return fserr.Closed()
	}
	return fserr.Translate(err)
}

func (e *Engine) debugStep(rec *record, msg string) {
	if e.cfg.DebugMode {
		e.log.Debugf("%s %s: %s (step %d)", rec.kind, rec.path, msg, rec.pending)
	}
}
