package engine

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rarydzu/asyncfs/arena"
	"github.com/rarydzu/asyncfs/engine/config"
	"github.com/rarydzu/asyncfs/fserr"
	"github.com/rarydzu/asyncfs/reactor"
)

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	e, err := New(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Shutdown() })
	return e
}

func awaitDone(t *testing.T, e *Engine, op func(cb DoneCallback) error) error {
	t.Helper()
	ch := make(chan error, 1)
	require.NoError(t, op(func(err error, userdata any) {
		ch <- err
	}))
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("callback not delivered")
		return nil
	}
}

func awaitRead(t *testing.T, e *Engine, path string, scope *arena.Arena) (error, []byte) {
	t.Helper()
	type result struct {
		err  error
		data []byte
	}
	ch := make(chan result, 1)
	require.NoError(t, e.ReadFile(path, scope, func(err error, data []byte, userdata any) {
		ch <- result{err, data}
	}, nil))
	select {
	case r := <-ch:
		return r.err, r.data
	case <-time.After(5 * time.Second):
		t.Fatal("read callback not delivered")
		return nil, nil
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	e := newTestEngine(t, nil)
	path := filepath.Join(t.TempDir(), "f")
	payload := []byte("the quick brown fox")

	err := awaitDone(t, e, func(cb DoneCallback) error {
		return e.WriteFile(path, payload, cb, nil)
	})
	require.NoError(t, err)

	rerr, data := awaitRead(t, e, path, nil)
	require.NoError(t, rerr)
	assert.Equal(t, payload, data)
	arena.PutBuffer(data)
}

func TestReadMissingExactlyOnce(t *testing.T) {
	e := newTestEngine(t, nil)
	calls := 0
	ch := make(chan struct{})
	require.NoError(t, e.ReadFile(filepath.Join(t.TempDir(), "missing"), nil,
		func(err error, data []byte, userdata any) {
			calls++
			assert.True(t, fserr.IsNotFound(err))
			assert.Nil(t, data)
			close(ch)
		}, nil))
	<-ch
	// give a duplicate invocation a chance to show up
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, e.Stats().FailedOperations)
}

func TestTruncateSemantics(t *testing.T) {
	e := newTestEngine(t, nil)
	path := filepath.Join(t.TempDir(), "f")

	require.NoError(t, awaitDone(t, e, func(cb DoneCallback) error {
		return e.WriteFile(path, []byte("a"), cb, nil)
	}))
	require.NoError(t, awaitDone(t, e, func(cb DoneCallback) error {
		return e.WriteFile(path, []byte("b"), cb, nil)
	}))
	err, data := awaitRead(t, e, path, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
	arena.PutBuffer(data)
}

func TestAppendSemantics(t *testing.T) {
	e := newTestEngine(t, nil)
	path := filepath.Join(t.TempDir(), "f")

	require.NoError(t, awaitDone(t, e, func(cb DoneCallback) error {
		return e.WriteFile(path, []byte("a"), cb, nil)
	}))
	require.NoError(t, awaitDone(t, e, func(cb DoneCallback) error {
		return e.AppendFile(path, []byte("b"), cb, nil)
	}))
	err, data := awaitRead(t, e, path, nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(data))
	arena.PutBuffer(data)
}

func TestScopedRead(t *testing.T) {
	e := newTestEngine(t, nil)
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("scoped"), 0644))

	scope := arena.New()
	err, data := awaitRead(t, e, path, scope)
	require.NoError(t, err)
	assert.Equal(t, "scoped", string(data))
	assert.Equal(t, 1, scope.Len())
	scope.Release()
}

func TestReadFromReleasedArena(t *testing.T) {
	e := newTestEngine(t, nil)
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	scope := arena.New()
	scope.Release()
	err, data := awaitRead(t, e, path, scope)
	require.Error(t, err)
	assert.Nil(t, data)
	assert.Equal(t, fserr.TokenNoMemory, err.(*fserr.Error).Token)
}

func TestWritePayloadTooLargeSync(t *testing.T) {
	e := newTestEngine(t, &config.Config{MaxFileSize: 8})
	err := e.WriteFile(filepath.Join(t.TempDir(), "f"), make([]byte, 9),
		func(err error, userdata any) {
			t.Error("callback must not run for synchronous rejection")
		}, nil)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Equal(t, 0, e.Stats().ActiveOperations)
}

func TestReadTooLarge(t *testing.T) {
	e := newTestEngine(t, &config.Config{MaxFileSize: 4})
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("longer than four"), 0644))

	err, data := awaitRead(t, e, path, nil)
	require.Error(t, err)
	assert.Nil(t, data)
	assert.True(t, fserr.IsTooLarge(err))
}

func TestStatIdempotent(t *testing.T) {
	e := newTestEngine(t, nil)
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0644))

	statOnce := func() reactor.FileInfo {
		ch := make(chan reactor.FileInfo, 1)
		require.NoError(t, e.Stat(path, func(err error, info *reactor.FileInfo, userdata any) {
			require.NoError(t, err)
			ch <- *info
		}, nil))
		return <-ch
	}
	first := statOnce()
	second := statOnce()
	assert.Equal(t, int64(5), first.Size)
	assert.Equal(t, first.Size, second.Size)
	assert.Equal(t, first.Mode, second.Mode)
}

func TestRename(t *testing.T) {
	e := newTestEngine(t, nil)
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, awaitDone(t, e, func(cb DoneCallback) error {
		return e.WriteFile(a, []byte("content"), cb, nil)
	}))
	require.NoError(t, awaitDone(t, e, func(cb DoneCallback) error {
		return e.Rename(a, b, cb, nil)
	}))

	ch := make(chan error, 1)
	require.NoError(t, e.Stat(a, func(err error, info *reactor.FileInfo, userdata any) {
		ch <- err
	}, nil))
	assert.True(t, fserr.IsNotFound(<-ch))

	err, data := awaitRead(t, e, b, nil)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
	arena.PutBuffer(data)
}

func TestMkdirRmdirUnlink(t *testing.T) {
	e := newTestEngine(t, nil)
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	file := filepath.Join(sub, "f")

	require.NoError(t, awaitDone(t, e, func(cb DoneCallback) error {
		return e.Mkdir(sub, cb, nil)
	}))
	require.NoError(t, awaitDone(t, e, func(cb DoneCallback) error {
		return e.WriteFile(file, []byte("x"), cb, nil)
	}))
	// not empty yet
	assert.Error(t, awaitDone(t, e, func(cb DoneCallback) error {
		return e.Rmdir(sub, cb, nil)
	}))
	require.NoError(t, awaitDone(t, e, func(cb DoneCallback) error {
		return e.Unlink(file, cb, nil)
	}))
	require.NoError(t, awaitDone(t, e, func(cb DoneCallback) error {
		return e.Rmdir(sub, cb, nil)
	}))
}

func TestMkdirExists(t *testing.T) {
	e := newTestEngine(t, nil)
	dir := t.TempDir()
	err := awaitDone(t, e, func(cb DoneCallback) error {
		return e.Mkdir(dir, cb, nil)
	})
	assert.True(t, fserr.IsExists(err))
}

func TestInvalidArguments(t *testing.T) {
	e := newTestEngine(t, nil)
	cb := func(err error, userdata any) {}
	assert.ErrorIs(t, e.WriteFile("", []byte("x"), cb, nil), ErrInvalidArgs)
	assert.ErrorIs(t, e.WriteFile("/tmp/x", nil, cb, nil), ErrInvalidArgs)
	assert.ErrorIs(t, e.WriteFile("/tmp/x", []byte("x"), nil, nil), ErrInvalidArgs)
	assert.ErrorIs(t, e.ReadFile("", nil, func(error, []byte, any) {}, nil), ErrInvalidArgs)
	assert.ErrorIs(t, e.ReadFile("/tmp/x", nil, nil, nil), ErrInvalidArgs)
	assert.ErrorIs(t, e.Stat("", func(error, *reactor.FileInfo, any) {}, nil), ErrInvalidArgs)
	assert.ErrorIs(t, e.Rename("/tmp/a", "", cb, nil), ErrInvalidArgs)
	assert.ErrorIs(t, e.Unlink("", cb, nil), ErrInvalidArgs)
}

func TestNotRunning(t *testing.T) {
	e, err := New(&config.Config{}, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.ErrorIs(t, e.Unlink("/tmp/x", func(error, any) {}, nil), ErrNotRunning)
	require.NoError(t, e.Start())
	require.NoError(t, e.Shutdown())
	assert.ErrorIs(t, e.Unlink("/tmp/x", func(error, any) {}, nil), ErrNotRunning)
	// both lifecycle calls are idempotent
	require.NoError(t, e.Shutdown())
}

func TestStatistics(t *testing.T) {
	e := newTestEngine(t, nil)
	dir := t.TempDir()
	total := 0
	for i, payload := range []string{"aa", "bbb", "c"} {
		path := filepath.Join(dir, string(rune('a'+i)))
		require.NoError(t, awaitDone(t, e, func(cb DoneCallback) error {
			return e.WriteFile(path, []byte(payload), cb, nil)
		}))
		err, data := awaitRead(t, e, path, nil)
		require.NoError(t, err)
		total += len(data)
		arena.PutBuffer(data)
	}
	s := e.Stats()
	assert.Equal(t, uint64(3), s.TotalReads)
	assert.Equal(t, uint64(3), s.TotalWrites)
	assert.Equal(t, uint64(total), s.TotalBytesRead)
	assert.Equal(t, uint64(total), s.TotalBytesWritten)
	assert.Equal(t, 0, s.FailedOperations)
	assert.GreaterOrEqual(t, s.PeakOperations, 1)

	e.ResetStats()
	s = e.Stats()
	assert.Equal(t, uint64(0), s.TotalReads)
	assert.Equal(t, uint64(0), s.TotalBytesRead)
	assert.GreaterOrEqual(t, s.PeakOperations, 1)
}

func TestConcurrentRoundTrips(t *testing.T) {
	e := newTestEngine(t, nil)
	dir := t.TempDir()
	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		path := filepath.Join(dir, "f"+string(rune('a'+i%26))+string(rune('0'+i/26)))
		go func(path string) {
			defer wg.Done()
			require.NoError(t, awaitDone(t, e, func(cb DoneCallback) error {
				return e.WriteFile(path, []byte(path), cb, nil)
			}))
			err, data := awaitRead(t, e, path, nil)
			require.NoError(t, err)
			assert.Equal(t, path, string(data))
			arena.PutBuffer(data)
		}(path)
	}
	wg.Wait()
	s := e.Stats()
	assert.Equal(t, uint64(n), s.TotalReads)
	assert.Equal(t, 0, s.ActiveOperations)
	assert.LessOrEqual(t, s.PeakOperations, config.DefaultMaxConcurrentOps)
}
