// Package processor coordinates signal driven shutdown for asyncfs
// binaries. Components register named shutdown hooks; on SIGINT or SIGTERM
// all hooks run, with a force-exit timer bounding the total shutdown time.
package processor

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type hook struct {
	name string
	fn   func() error
}

type Processor struct {
	forceTimeout time.Duration
	log          *zap.SugaredLogger

	mu    sync.Mutex
	hooks []hook

	wg   sync.WaitGroup
	stop context.CancelFunc
}

// New creates a processor that force-exits if shutdown hooks take longer
// than timeout.
func New(timeout time.Duration, log *zap.SugaredLogger) *Processor {
	return &Processor{
		forceTimeout: timeout,
		log:          log,
	}
}

// Register adds a named shutdown hook. Hooks run in registration order.
func (p *Processor) Register(name string, fn func() error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, hook{name: name, fn: fn})
}

// Run starts listening for SIGINT and SIGTERM. It returns immediately; use
// Wait to block until shutdown completed.
func (p *Processor) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	p.stop = stop
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		<-ctx.Done()
		stop()
		tF := time.AfterFunc(p.forceTimeout, func() {
			p.log.Warnf("shutdown exceeded %s, force exit", p.forceTimeout)
			os.Exit(1)
		})
		defer tF.Stop()
		p.Shutdown()
	}()
}

// Shutdown runs all registered hooks once, logging per-hook outcome.
func (p *Processor) Shutdown() {
	p.mu.Lock()
	hooks := p.hooks
	p.hooks = nil
	p.mu.Unlock()
	for _, h := range hooks {
		if err := h.fn(); err != nil {
			p.log.Warnf("shutdown %s: failed (%v)", h.name, err)
			continue
		}
		p.log.Infof("shutdown %s: succeeded", h.name)
	}
}

// Trigger initiates shutdown programmatically, as if a signal arrived.
func (p *Processor) Trigger() {
	if p.stop != nil {
		p.stop()
	}
}

// Wait blocks until the shutdown sequence has finished.
func (p *Processor) Wait() {
	p.wg.Wait()
}
