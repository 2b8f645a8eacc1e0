package engine

import (
	"github.com/rarydzu/asyncfs/reactor"
)

// Stat resolves metadata for path. The FileInfo handed to cb is valid only
// for the duration of the callback; copy it to retain it.
func (e *Engine) Stat(path string, cb StatCallback, userdata any) error {
	if path == "" || cb == nil {
		return ErrInvalidArgs
	}
	if !e.running() {
		return ErrNotRunning
	}
	if !e.stats.TryAdmit() {
		return ErrRejected
	}
	rec := &record{
		kind:     OpStat,
		path:     path,
		statCb:   cb,
		userdata: userdata,
		pending:  stepStat,
	}
	e.re.Stat(path, func(info reactor.FileInfo, err error) {
		e.statDone(rec, info, err)
	})
	return nil
}

func (e *Engine) statDone(rec *record, info reactor.FileInfo, err error) {
	rec.pending = stepDone
	if err != nil {
		rec.opErr = e.translate(err)
		rec.statCb(rec.opErr, nil, rec.userdata)
		e.stats.RecordFailure()
	} else {
		rec.info = info
		rec.statCb(nil, &rec.info, rec.userdata)
	}
	e.stats.Release()
}

// Unlink removes the file at path.
func (e *Engine) Unlink(path string, cb DoneCallback, userdata any) error {
	return e.startSimple(OpUnlink, path, "", cb, userdata, func(rec *record) {
		e.re.Unlink(rec.path, func(err error) { e.simpleDone(rec, err) })
	})
}

// Mkdir creates a directory at path with mode 0755.
func (e *Engine) Mkdir(path string, cb DoneCallback, userdata any) error {
	return e.startSimple(OpMkdir, path, "", cb, userdata, func(rec *record) {
		e.re.Mkdir(rec.path, 0755, func(err error) { e.simpleDone(rec, err) })
	})
}

// Rmdir removes the empty directory at path.
func (e *Engine) Rmdir(path string, cb DoneCallback, userdata any) error {
	return e.startSimple(OpRmdir, path, "", cb, userdata, func(rec *record) {
		e.re.Rmdir(rec.path, func(err error) { e.simpleDone(rec, err) })
	})
}

// Rename moves oldpath to newpath.
func (e *Engine) Rename(oldpath, newpath string, cb DoneCallback, userdata any) error {
	return e.startSimple(OpRename, oldpath, newpath, cb, userdata, func(rec *record) {
		e.re.Rename(rec.path, rec.path2, func(err error) { e.simpleDone(rec, err) })
	})
}

// startSimple runs the shared validate/admit/issue prologue for the
// single-step operations.
func (e *Engine) startSimple(kind OpKind, path, path2 string, cb DoneCallback, userdata any, issue func(rec *record)) error {
	if path == "" || cb == nil || (kind == OpRename && path2 == "") {
		return ErrInvalidArgs
	}
	if !e.running() {
		return ErrNotRunning
	}
	if !e.stats.TryAdmit() {
		e.log.Debugf("%s %s: rejected (%d/%d active)", kind, path, e.stats.Active(), e.stats.Limit())
		return ErrRejected
	}
	rec := &record{
		kind:     kind,
		path:     path,
		path2:    path2,
		doneCb:   cb,
		userdata: userdata,
		pending:  stepData,
	}
	issue(rec)
	return nil
}

func (e *Engine) simpleDone(rec *record, err error) {
	rec.pending = stepDone
	if err != nil {
		rec.opErr = e.translate(err)
		rec.doneCb(rec.opErr, rec.userdata)
		e.stats.RecordFailure()
	} else {
		rec.doneCb(nil, rec.userdata)
	}
	e.stats.Release()
}
