package engine

import (
	"os"

	"github.com/rarydzu/asyncfs/arena"
	"github.com/rarydzu/asyncfs/fserr"
	"github.com/rarydzu/asyncfs/reactor"
)

// ReadFile reads the whole file at path and delivers it through cb. The
// chain is stat, size check, open, read, close; any failure is terminal and
// reported through exactly one callback invocation.
//
// When scope is non-nil the destination buffer is allocated from it and its
// lifetime is the arena's; the engine never releases it. When scope is nil
// the buffer is pool-backed and ownership transfers to the caller on
// success: hand it back with arena.PutBuffer once done. On failure the
// engine releases it either way.
//
// The returned error reports only the admission outcome: nil means the
// operation was queued and the callback will fire exactly once.
func (e *Engine) ReadFile(path string, scope *arena.Arena, cb ReadCallback, userdata any) error {
	if path == "" || cb == nil {
		return ErrInvalidArgs
	}
	if !e.running() {
		return ErrNotRunning
	}
	if !e.stats.TryAdmit() {
		e.log.Debugf("read %s: rejected (%d/%d active)", path, e.stats.Active(), e.stats.Limit())
		return ErrRejected
	}
	rec := &record{
		kind:     OpRead,
		path:     path,
		scope:    scope,
		readCb:   cb,
		userdata: userdata,
		pending:  stepStat,
	}
	if scope != nil {
		rec.mode = bufferScoped
	} else {
		rec.mode = bufferCallerOwned
	}
	e.re.Stat(path, func(info reactor.FileInfo, err error) {
		e.readStatDone(rec, info, err)
	})
	return nil
}

// failRead ends a read with err. freeData releases a pool-backed buffer;
// scoped buffers are always left to their arena.
func (e *Engine) failRead(rec *record, err *fserr.Error, freeData bool) {
	rec.pending = stepDone
	rec.opErr = err
	rec.readCb(err, nil, rec.userdata)
	e.stats.RecordFailure()
	e.stats.Release()
	if freeData {
		rec.releaseBuffer()
	}
}

func (e *Engine) readStatDone(rec *record, info reactor.FileInfo, err error) {
	if err != nil {
		e.failRead(rec, e.translate(err), false)
		return
	}
	rec.fileSize = info.Size
	if rec.fileSize > e.cfg.MaxFileSize {
		e.failRead(rec, fserr.TooLarge(), false)
		return
	}
	if rec.scope != nil {
		rec.data = rec.scope.Alloc(int(rec.fileSize))
	} else {
		rec.data = arena.GetBuffer(int(rec.fileSize))
	}
	if rec.data == nil && rec.fileSize > 0 {
		e.failRead(rec, fserr.AllocFailed(), false)
		return
	}
	rec.pending = stepOpen
	e.debugStep(rec, "opening")
	e.re.Open(rec.path, os.O_RDONLY, 0, func(h reactor.Handle, err error) {
		e.readOpenDone(rec, h, err)
	})
}

func (e *Engine) readOpenDone(rec *record, h reactor.Handle, err error) {
	if err != nil {
		e.failRead(rec, e.translate(err), true)
		return
	}
	rec.handle = h
	rec.pending = stepData
	e.debugStep(rec, "reading")
	e.re.Read(h, rec.data, 0, func(n int, err error) {
		e.readDataDone(rec, n, err)
	})
}

func (e *Engine) readDataDone(rec *record, n int, err error) {
	if err != nil {
		e.closeQuietly(rec)
		e.failRead(rec, e.translate(err), true)
		return
	}
	rec.size = n
	rec.pending = stepClose
	h := rec.handle
	rec.handle = nil
	e.re.Close(h, func(err error) {
		e.readCloseDone(rec, err)
	})
}

func (e *Engine) readCloseDone(rec *record, err error) {
	if err != nil {
		// dropped by contract; the data was read successfully
		e.log.Debugf("read %s: close: %v", rec.path, err)
	}
	rec.pending = stepDone
	rec.readCb(nil, rec.data[:rec.size], rec.userdata)
	e.stats.RecordRead(rec.size)
	e.stats.Release()
	// buffer ownership has transferred to the caller or the arena
}
