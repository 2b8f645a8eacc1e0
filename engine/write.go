package engine

import (
	"os"

	"github.com/rarydzu/asyncfs/arena"
	"github.com/rarydzu/asyncfs/fserr"
	"github.com/rarydzu/asyncfs/reactor"
)

// WriteFile writes data to path, creating the file or truncating an
// existing one. The payload is copied before WriteFile returns; the
// caller's slice is never retained. The outcome arrives through cb.
func (e *Engine) WriteFile(path string, data []byte, cb DoneCallback, userdata any) error {
	return e.writeInternal(OpWrite, path, data, cb, userdata,
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

// AppendFile appends data to path, creating the file if needed. Placement
// relies on the append open flag; no explicit seek is issued.
func (e *Engine) AppendFile(path string, data []byte, cb DoneCallback, userdata any) error {
	return e.writeInternal(OpAppend, path, data, cb, userdata,
		os.O_WRONLY|os.O_CREATE|os.O_APPEND)
}

func (e *Engine) writeInternal(kind OpKind, path string, data []byte, cb DoneCallback, userdata any, flag int) error {
	if path == "" || data == nil || cb == nil {
		return ErrInvalidArgs
	}
	if !e.running() {
		return ErrNotRunning
	}
	if int64(len(data)) > e.cfg.MaxFileSize {
		// rejected before any I/O and before admission
		return ErrPayloadTooLarge
	}
	if !e.stats.TryAdmit() {
		e.log.Debugf("%s %s: rejected (%d/%d active)", kind, path, e.stats.Active(), e.stats.Limit())
		return ErrRejected
	}
	buf := arena.GetBuffer(len(data))
	copy(buf, data)
	rec := &record{
		kind:     kind,
		path:     path,
		data:     buf,
		size:     len(data),
		mode:     bufferEngineOwned,
		doneCb:   cb,
		userdata: userdata,
		pending:  stepOpen,
	}
	e.re.Open(path, flag, 0644, func(h reactor.Handle, err error) {
		e.writeOpenDone(rec, h, err)
	})
	return nil
}

// failWrite ends a write or append with err. The engine's payload copy is
// always released, success or failure.
func (e *Engine) failWrite(rec *record, err *fserr.Error) {
	rec.pending = stepDone
	rec.opErr = err
	rec.doneCb(err, rec.userdata)
	e.stats.RecordFailure()
	e.stats.Release()
	rec.releaseBuffer()
}

func (e *Engine) writeOpenDone(rec *record, h reactor.Handle, err error) {
	if err != nil {
		e.failWrite(rec, e.translate(err))
		return
	}
	rec.handle = h
	rec.pending = stepData
	e.debugStep(rec, "writing")
	off := int64(0)
	if rec.kind == OpAppend {
		// cursor already positioned by the append open flag
		off = -1
	}
	e.re.Write(h, rec.data[:rec.size], off, func(n int, err error) {
		e.writeDataDone(rec, n, err)
	})
}

func (e *Engine) writeDataDone(rec *record, n int, err error) {
	if err != nil {
		e.closeQuietly(rec)
		e.failWrite(rec, e.translate(err))
		return
	}
	rec.size = n
	rec.pending = stepClose
	h := rec.handle
	rec.handle = nil
	e.re.Close(h, func(err error) {
		e.writeCloseDone(rec, err)
	})
}

func (e *Engine) writeCloseDone(rec *record, err error) {
	if err != nil {
		e.log.Debugf("%s %s: close: %v", rec.kind, rec.path, err)
	}
	rec.pending = stepDone
	rec.doneCb(nil, rec.userdata)
	e.stats.RecordWrite(rec.size)
	e.stats.Release()
	rec.releaseBuffer()
}
