// Package config holds the static configuration of the asyncfs engine.
package config

import (
	"time"

	"github.com/rarydzu/asyncfs/reactor"
)

const (
	// DefaultMaxConcurrentOps is the admission ceiling applied when none
	// is configured.
	DefaultMaxConcurrentOps = 100
	// DefaultMaxFileSize caps read and write payloads at 100 MiB.
	DefaultMaxFileSize = 100 << 20
	// DefaultShutdownTimeout bounds the shutdown drain wait.
	DefaultShutdownTimeout = time.Second
	// DefaultWorkers is the reactor pool size.
	DefaultWorkers = 4
)

type Config struct {
	// MaxConcurrentOps is the admission ceiling; operations beyond it are
	// rejected synchronously.
	MaxConcurrentOps int
	// MaxFileSize caps read sizes (checked after stat) and write/append
	// payloads (checked before any I/O).
	MaxFileSize int64
	// ShutdownTimeout bounds how long Shutdown waits for in-flight
	// operations to drain before proceeding anyway.
	ShutdownTimeout time.Duration
	// Workers is the size of the engine-owned reactor pool. Ignored when
	// Reactor is set.
	Workers int
	// IOBytesPerSec throttles pool read/write throughput. 0 is unlimited.
	IOBytesPerSec int
	// Reactor optionally injects an external I/O backend. When nil the
	// engine builds and owns a reactor.Pool.
	Reactor reactor.Reactor
	// DebugMode enables verbose per-step logging.
	DebugMode bool
}
