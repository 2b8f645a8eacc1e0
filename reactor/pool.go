package reactor

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrClosed is delivered to completions scheduled after the pool shut down.
var ErrClosed = errors.New("reactor: pool closed")

// ErrQueueFull is delivered when the job queue is at capacity. Submissions
// never block; size the queue to cover the maximum number of in-flight
// operations to make this unreachable.
var ErrQueueFull = errors.New("reactor: job queue full")

// errBadHandle is delivered when a Handle did not come from this pool.
var errBadHandle = errors.New("reactor: invalid handle")

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
)

// PoolConfig configures a Pool.
type PoolConfig struct {
	// Workers is the number of goroutines running syscalls. Defaults to 4.
	Workers int
	// QueueSize bounds the job queue. Submissions beyond capacity are
	// rejected with ErrQueueFull rather than blocking, so it must be at
	// least as large as the number of operations that can be in flight at
	// once. Defaults to 256.
	QueueSize int
	// IOBytesPerSec throttles read/write throughput. 0 means unlimited.
	IOBytesPerSec int
}

// Pool runs filesystem syscalls on a fixed set of worker goroutines and
// funnels all completions through one dispatch goroutine.
type Pool struct {
	log *zap.SugaredLogger

	jobs        chan func() func()
	completions chan func()
	limiter     *rate.Limiter

	workers      errgroup.Group
	dispatchDone chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ Reactor = (*Pool)(nil)

// NewPool creates and starts a pool.
func NewPool(cfg PoolConfig, log *zap.SugaredLogger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	p := &Pool{
		log:          log,
		jobs:         make(chan func() func(), cfg.QueueSize),
		completions:  make(chan func(), cfg.QueueSize),
		dispatchDone: make(chan struct{}),
	}
	if cfg.IOBytesPerSec > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.IOBytesPerSec), cfg.IOBytesPerSec)
	}
	for i := 0; i < cfg.Workers; i++ {
		p.workers.Go(p.worker)
	}
	go p.dispatch()
	return p
}

func (p *Pool) worker() error {
	for job := range p.jobs {
		p.completions <- job()
	}
	return nil
}

func (p *Pool) dispatch() {
	defer close(p.dispatchDone)
	for done := range p.completions {
		done()
	}
}

// submit queues a job without ever blocking: a closed pool or a full queue
// invokes the reject closure inline instead, so a completion is still
// delivered exactly once and a completion handler can never deadlock
// against Shutdown.
func (p *Pool) submit(job func() func(), reject func(err error)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		reject(ErrClosed)
		return
	}
	select {
	case p.jobs <- job:
	default:
		reject(ErrQueueFull)
	}
}

// throttle blocks a worker until the rate limiter admits n bytes of I/O.
func (p *Pool) throttle(n int) {
	if p.limiter == nil || n == 0 {
		return
	}
	if n > p.limiter.Burst() {
		n = p.limiter.Burst()
	}
	if err := p.limiter.WaitN(context.Background(), n); err != nil {
		p.log.Warnf("io limiter: %v", err)
	}
}

// Shutdown drains the workers and the dispatcher. Pending jobs run to
// completion and their callbacks are delivered before Shutdown returns.
// Shutdown is idempotent.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	if err := p.workers.Wait(); err != nil {
		p.log.Errorf("reactor workers: %v", err)
	}
	close(p.completions)
	<-p.dispatchDone
}

func (p *Pool) Stat(path string, done func(info FileInfo, err error)) {
	p.submit(func() func() {
		fi, err := os.Stat(path)
		var info FileInfo
		if err == nil {
			info = newFileInfo(fi)
		}
		return func() { done(info, err) }
	}, func(err error) { done(FileInfo{}, err) })
}

func (p *Pool) Open(path string, flag int, perm os.FileMode, done func(h Handle, err error)) {
	p.submit(func() func() {
		f, err := os.OpenFile(path, flag, perm)
		return func() { done(f, err) }
	}, func(err error) { done(nil, err) })
}

func (p *Pool) Read(h Handle, buf []byte, off int64, done func(n int, err error)) {
	f, ok := h.(*os.File)
	if !ok {
		p.fail(func() { done(0, errBadHandle) })
		return
	}
	p.submit(func() func() {
		p.throttle(len(buf))
		n, err := f.ReadAt(buf, off)
		if err == io.EOF {
			// short file, not an error for a full-size read
			err = nil
		}
		return func() { done(n, err) }
	}, func(err error) { done(0, err) })
}

func (p *Pool) Write(h Handle, buf []byte, off int64, done func(n int, err error)) {
	f, ok := h.(*os.File)
	if !ok {
		p.fail(func() { done(0, errBadHandle) })
		return
	}
	p.submit(func() func() {
		p.throttle(len(buf))
		var n int
		var err error
		if off < 0 {
			n, err = f.Write(buf)
		} else {
			n, err = f.WriteAt(buf, off)
		}
		return func() { done(n, err) }
	}, func(err error) { done(0, err) })
}

func (p *Pool) Close(h Handle, done func(err error)) {
	f, ok := h.(*os.File)
	if !ok {
		p.fail(func() { done(errBadHandle) })
		return
	}
	p.submit(func() func() {
		err := f.Close()
		return func() { done(err) }
	}, func(err error) { done(err) })
}

func (p *Pool) Unlink(path string, done func(err error)) {
	p.submit(func() func() {
		err := wrapPathErr("unlink", path, syscall.Unlink(path))
		return func() { done(err) }
	}, func(err error) { done(err) })
}

func (p *Pool) Rename(oldpath, newpath string, done func(err error)) {
	p.submit(func() func() {
		err := os.Rename(oldpath, newpath)
		return func() { done(err) }
	}, func(err error) { done(err) })
}

func (p *Pool) Mkdir(path string, perm os.FileMode, done func(err error)) {
	p.submit(func() func() {
		err := os.Mkdir(path, perm)
		return func() { done(err) }
	}, func(err error) { done(err) })
}

func (p *Pool) Rmdir(path string, done func(err error)) {
	p.submit(func() func() {
		err := wrapPathErr("rmdir", path, syscall.Rmdir(path))
		return func() { done(err) }
	}, func(err error) { done(err) })
}

// fail delivers an error completion through the dispatcher so that ordering
// guarantees hold even for submission-time failures.
func (p *Pool) fail(done func()) {
	p.submit(func() func() { return done }, func(error) { done() })
}

func wrapPathErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &os.PathError{Op: op, Path: path, Err: err}
}
