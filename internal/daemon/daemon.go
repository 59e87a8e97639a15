package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"bindery/internal/bundler"
	"bindery/internal/config"
	"bindery/internal/jobs"
	"bindery/internal/logging"
	"bindery/internal/reaper"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *jobs.Store
	bundler *bundler.Service
	reaper  *reaper.Reaper
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running    atomic.Bool
	ctx        context.Context
	cancel     context.CancelFunc
	reaperDone chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	JobDBPath    string
	LockFilePath string
	CacheRoot    string
	JobsByStatus map[jobs.Status]int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, svc *bundler.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || svc == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, bundler, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "binderyd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		bundler:  svc,
		reaper:   reaper.New(cfg, store, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches the bundler, the reaper, and
// the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another bindery daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.bundler.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start bundler: %w", err)
	}

	d.reaperDone = make(chan struct{})
	go func() {
		defer close(d.reaperDone)
		d.reaper.Run(d.ctx)
	}()

	if err := d.api.start(d.ctx); err != nil {
		d.cancel()
		<-d.reaperDone
		d.bundler.Stop()
		_ = d.lock.Unlock()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("bindery daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if d.reaperDone != nil {
		<-d.reaperDone
		d.reaperDone = nil
	}
	d.bundler.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("bindery daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("job stats unavailable", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		JobDBPath:    d.store.Path(),
		LockFilePath: d.lockPath,
		CacheRoot:    d.cfg.Paths.CacheDir,
		JobsByStatus: stats,
	}
}
