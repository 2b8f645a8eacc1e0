package main

import (
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rarydzu/asyncfs/engine"
	"github.com/rarydzu/asyncfs/engine/config"
	"github.com/rarydzu/asyncfs/fsstats"
	"github.com/rarydzu/asyncfs/processor"
	"github.com/rarydzu/asyncfs/utils"
)

var fDir = flag.String("dir", "", "Directory to run the stress workload in (default: a temp dir).")
var fCount = flag.Int("count", 100, "Number of write+read round trips.")
var fSize = flag.Int("size", 4096, "Payload size in bytes.")
var fConfig = flag.String("config", "", "Path to an optional YAML config file.")
var fDev = flag.Bool("dev", false, "Run in development mode.")
var fMetricsAddr = flag.String("metrics_addr", "", "Serve prometheus metrics on this address and wait for SIGINT.")
var fIOLimit = flag.Int("io_limit", 0, "I/O throughput limit in bytes per second (0 = unlimited).")

func loadConfig(cfg *config.Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	if v.IsSet("max_concurrent_ops") {
		cfg.MaxConcurrentOps = v.GetInt("max_concurrent_ops")
	}
	if v.IsSet("max_file_size") {
		cfg.MaxFileSize = v.GetInt64("max_file_size")
	}
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}
	if v.IsSet("shutdown_timeout") {
		cfg.ShutdownTimeout = v.GetDuration("shutdown_timeout")
	}
	if v.IsSet("io_bytes_per_sec") {
		cfg.IOBytesPerSec = v.GetInt("io_bytes_per_sec")
	}
	return nil
}

func openFiles(sugarlog *zap.SugaredLogger) int {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		sugarlog.Debugf("process handle: %v", err)
		return -1
	}
	files, err := p.OpenFiles()
	if err != nil {
		sugarlog.Debugf("open files: %v", err)
		return -1
	}
	return len(files)
}

func main() {
	flag.Parse()
	logger, err := zap.NewProduction()
	if *fDev {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize zap logger: %v", err)
	}
	sugarlog := logger.Sugar()

	cfg := &config.Config{
		IOBytesPerSec: *fIOLimit,
		DebugMode:     *fDev,
	}
	if *fConfig != "" {
		if err := loadConfig(cfg, *fConfig); err != nil {
			log.Fatalf("Config %s: %v", *fConfig, err)
		}
	}

	dir := *fDir
	if dir == "" {
		dir, err = os.MkdirTemp("", "asyncfs")
		if err != nil {
			log.Fatalf("MkdirTemp: %v", err)
		}
		defer os.RemoveAll(dir)
	}

	eng, err := engine.New(cfg, sugarlog)
	if err != nil {
		log.Fatalf("engine.New: %v", err)
	}
	if err := eng.Start(); err != nil {
		log.Fatalf("engine.Start: %v", err)
	}

	fdsBefore := openFiles(sugarlog)
	payload := []byte(utils.RandString(*fSize))
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < *fCount; i++ {
		path := filepath.Join(dir, utils.RandString(16))
		wg.Add(1)
		submit := func() error {
			return eng.WriteFile(path, payload, func(werr error, userdata any) {
				if werr != nil {
					sugarlog.Errorf("write %s: %v", path, werr)
					wg.Done()
					return
				}
				rerr := eng.ReadFile(path, nil, func(rerr error, data []byte, userdata any) {
					defer wg.Done()
					if rerr != nil {
						sugarlog.Errorf("read %s: %v", path, rerr)
						return
					}
					if string(data) != string(payload) {
						sugarlog.Errorf("read %s: payload mismatch (%d bytes)", path, len(data))
					}
				}, nil)
				if rerr != nil {
					sugarlog.Errorf("read %s: %v", path, rerr)
					wg.Done()
				}
			}, nil)
		}
		for {
			err := submit()
			if err == nil {
				break
			}
			if errors.Is(err, engine.ErrRejected) {
				// admission ceiling reached, back off and retry
				time.Sleep(time.Millisecond)
				continue
			}
			sugarlog.Errorf("write %s: %v", path, err)
			wg.Done()
			break
		}
	}
	wg.Wait()

	s := eng.Stats()
	sugarlog.Infof("completed %d round trips in %s", *fCount, time.Since(start))
	sugarlog.Infof("reads=%d (%s) writes=%d (%s) failed=%d peak=%d",
		s.TotalReads, utils.IECBytes(s.TotalBytesRead),
		s.TotalWrites, utils.IECBytes(s.TotalBytesWritten),
		s.FailedOperations, s.PeakOperations)

	if *fMetricsAddr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(fsstats.NewCollector(eng.Registry()))
		server := &http.Server{
			Addr:    *fMetricsAddr,
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}
		proc := processor.New(30*time.Second, sugarlog)
		proc.Register("metrics", server.Close)
		proc.Register("engine", eng.Shutdown)
		proc.Run()
		sugarlog.Infof("serving metrics on %s", *fMetricsAddr)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				sugarlog.Errorf("metrics server: %v", err)
			}
		}()
		proc.Wait()
	} else {
		if err := eng.Shutdown(); err != nil {
			sugarlog.Errorf("shutdown: %v", err)
		}
	}

	if fdsBefore >= 0 {
		if fdsAfter := openFiles(sugarlog); fdsAfter > fdsBefore {
			sugarlog.Warnf("open file handles grew from %d to %d", fdsBefore, fdsAfter)
		}
	}
	_ = logger.Sync()
}
