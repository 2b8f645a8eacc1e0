package engine

import (
	"github.com/rarydzu/asyncfs/arena"
	"github.com/rarydzu/asyncfs/fserr"
	"github.com/rarydzu/asyncfs/reactor"
)

// OpKind tags the operation a record is executing.
type OpKind int

const (
	OpRead OpKind = iota
	OpWrite
	OpAppend
	OpStat
	OpUnlink
	OpRename
	OpMkdir
	OpRmdir
)

func (k OpKind) String() string {
	switch k {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpAppend:
		return "append"
	case OpStat:
		return "stat"
	case OpUnlink:
		return "unlink"
	case OpRename:
		return "rename"
	case OpMkdir:
		return "mkdir"
	case OpRmdir:
		return "rmdir"
	default:
		return "unknown"
	}
}

// opStep names the link of the chain currently in flight, for diagnostics.
type opStep int

const (
	stepNone opStep = iota
	stepStat
	stepOpen
	stepData
	stepClose
	stepDone
)

// bufferMode selects who releases a record's data buffer.
type bufferMode int

const (
	bufferNone bufferMode = iota
	// bufferScoped: lifetime delegated entirely to the caller's arena;
	// the engine never releases it.
	bufferScoped
	// bufferCallerOwned: pool-backed; the engine releases it on failure,
	// ownership transfers to the caller on success (PutBuffer when done).
	bufferCallerOwned
	// bufferEngineOwned: the engine's private copy of a write payload,
	// always returned to the pool by the engine.
	bufferEngineOwned
)

// ReadCallback delivers the outcome of a read. On success data holds the
// file contents (its length is the byte count); on failure data is nil and
// err carries a *fserr.Error. err and data are only guaranteed valid for
// the duration of the call unless ownership was transferred.
type ReadCallback func(err error, data []byte, userdata any)

// DoneCallback delivers the outcome of a write, append, unlink, rename,
// mkdir or rmdir.
type DoneCallback func(err error, userdata any)

// StatCallback delivers file metadata. info is valid only for the duration
// of the call.
type StatCallback func(err error, info *reactor.FileInfo, userdata any)

// record is the per-call state container for one in-flight operation. It is
// created after admission, mutated only on the reactor dispatch goroutine,
// and never reused after its terminal callback.
type record struct {
	kind  OpKind
	path  string
	path2 string // rename target, unused otherwise

	data     []byte
	size     int
	mode     bufferMode
	scope    *arena.Arena
	fileSize int64

	handle  reactor.Handle
	pending opStep

	opErr *fserr.Error

	readCb   ReadCallback
	doneCb   DoneCallback
	statCb   StatCallback
	userdata any

	info reactor.FileInfo
}

// releaseBuffer frees the record's data buffer according to its ownership
// mode. Scoped buffers are left to their arena.
func (rec *record) releaseBuffer() {
	if rec.data == nil {
		return
	}
	switch rec.mode {
	case bufferCallerOwned, bufferEngineOwned:
		arena.PutBuffer(rec.data)
	}
	rec.data = nil
}
