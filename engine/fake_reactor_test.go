package engine

import (
	"os"
	"sync"

	"github.com/rarydzu/asyncfs/reactor"
)

// fakeReactor is a controllable Reactor for admission and shutdown tests.
// Completions are serialized through a single dispatch goroutine like the
// real pool. When hold is set, stat and unlink work parks until release is
// closed, keeping operations in flight.
type fakeReactor struct {
	mu          sync.Mutex
	completions chan func()
	release     chan struct{}
	hold        bool
	stats       int
	opens       int
	statSize    int64
	statErr     error
}

func newFakeReactor() *fakeReactor {
	f := &fakeReactor{
		completions: make(chan func(), 1024),
		release:     make(chan struct{}),
	}
	go func() {
		for done := range f.completions {
			done()
		}
	}()
	return f
}

func (f *fakeReactor) stop() {
	close(f.completions)
}

func (f *fakeReactor) post(done func()) {
	if f.hold {
		go func() {
			<-f.release
			f.completions <- done
		}()
		return
	}
	f.completions <- done
}

func (f *fakeReactor) counts() (stats, opens int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, f.opens
}

func (f *fakeReactor) Stat(path string, done func(info reactor.FileInfo, err error)) {
	f.mu.Lock()
	f.stats++
	size, err := f.statSize, f.statErr
	f.mu.Unlock()
	f.post(func() { done(reactor.FileInfo{Size: size}, err) })
}

func (f *fakeReactor) Open(path string, flag int, perm os.FileMode, done func(h reactor.Handle, err error)) {
	f.mu.Lock()
	f.opens++
	f.mu.Unlock()
	f.post(func() { done("fake-handle", nil) })
}

func (f *fakeReactor) Read(h reactor.Handle, buf []byte, off int64, done func(n int, err error)) {
	f.post(func() { done(len(buf), nil) })
}

func (f *fakeReactor) Write(h reactor.Handle, buf []byte, off int64, done func(n int, err error)) {
	f.post(func() { done(len(buf), nil) })
}

func (f *fakeReactor) Close(h reactor.Handle, done func(err error)) {
	f.post(func() { done(nil) })
}

func (f *fakeReactor) Unlink(path string, done func(err error)) {
	f.post(func() { done(nil) })
}

func (f *fakeReactor) Rename(oldpath, newpath string, done func(err error)) {
	f.post(func() { done(nil) })
}

func (f *fakeReactor) Mkdir(path string, perm os.FileMode, done func(err error)) {
	f.post(func() { done(nil) })
}

func (f *fakeReactor) Rmdir(path string, done func(err error)) {
	f.post(func() { done(nil) })
}
