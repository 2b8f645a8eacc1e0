// Package reactor defines the asynchronous I/O boundary the asyncfs engine
// drives, and a default implementation backed by a worker pool.
//
// Every method posts its work and returns immediately. The completion
// function runs later on a single dispatch goroutine shared by all
// operations of one Reactor; implementations must never run two completions
// concurrently. That serialization is what lets the engine mutate per
// operation state without locks.
package reactor

import (
	"os"
	"time"
)

// Handle identifies an open file within a Reactor implementation. It is
// opaque to callers and only valid between an Open completion and the
// matching Close completion.
type Handle any

// FileInfo is a read-only metadata snapshot produced by Stat. Its validity
// is scoped to the completion callback; copy it if you need to keep it.
type FileInfo struct {
	Size  int64
	Mode  os.FileMode
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// Reactor schedules filesystem work and delivers completions on a single
// dispatch goroutine. Errors handed to completions are raw OS errors;
// translation into caller-facing form is the engine's job.
type Reactor interface {
	// Stat resolves metadata for path.
	Stat(path string, done func(info FileInfo, err error))

	// Open opens path with the given flags and permission bits.
	Open(path string, flag int, perm os.FileMode, done func(h Handle, err error))

	// Read reads len(buf) bytes at offset off. A short read at end of
	// file is reported as success with the actual count.
	Read(h Handle, buf []byte, off int64, done func(n int, err error))

	// Write writes buf at offset off. A negative offset writes at the
	// current file position, which is how append-mode opens place data.
	Write(h Handle, buf []byte, off int64, done func(n int, err error))

	// Close releases the handle.
	Close(h Handle, done func(err error))

	Unlink(path string, done func(err error))
	Rename(oldpath, newpath string, done func(err error))
	Mkdir(path string, perm os.FileMode, done func(err error))
	Rmdir(path string, done func(err error))
}
