// Package reaper runs the periodic cache maintenance sweeps: expiring jobs
// whose reuse window lapsed, failing builds that crashed mid-preparation, and
// deleting cache directories no live job owns. Every sweep is idempotent, so
// overlapping or repeated runs are harmless.
package reaper

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"bindery/internal/config"
	"bindery/internal/fileutil"
	"bindery/internal/jobs"
	"bindery/internal/logging"
)

// staleFailureMessage is recorded on jobs abandoned mid-build.
const staleFailureMessage = "timed out during preparation"

// Reaper owns the maintenance sweeps over the job store and cache root.
type Reaper struct {
	cfg    *config.Config
	store  *jobs.Store
	logger *slog.Logger
}

// New constructs a Reaper.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger) *Reaper {
	return &Reaper{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "reaper"),
	}
}

// Run sweeps once immediately and then on the configured interval until ctx
// is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info("reaper started",
		logging.Duration("interval", r.cfg.ReapInterval()),
		logging.Duration("job_ttl", r.cfg.JobTTL()),
	)

	ticker := time.NewTicker(r.cfg.ReapInterval())
	defer ticker.Stop()

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	now := time.Now().UTC()
	if n, err := r.SweepExpired(ctx, now); err != nil {
		r.logger.Error("expired sweep failed", logging.Error(err))
	} else if n > 0 {
		r.logger.Info("expired jobs reaped", logging.Int("count", n))
	}
	if n, err := r.SweepStale(ctx, now); err != nil {
		r.logger.Error("stale sweep failed", logging.Error(err))
	} else if n > 0 {
		r.logger.Info("stale jobs failed", logging.Int("count", n))
	}
	if n, err := r.SweepOrphans(ctx); err != nil {
		r.logger.Error("orphan sweep failed", logging.Error(err))
	} else if n > 0 {
		r.logger.Info("orphan directories removed", logging.Int("count", n))
	}
}

// SweepExpired deletes the output of jobs past their expiry and marks them
// expired. Deletion happens before the status write: if the process dies in
// between, the next sweep finds the job still expired-but-live and finishes
// the job's bookkeeping, while the cache re-check keeps the stale record from
// serving.
func (r *Reaper) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := r.store.ExpiredJobs(ctx, now)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, job := range expired {
		if err := fileutil.RemoveDir(job.OutputRoot(r.cfg.Paths.CacheDir)); err != nil {
			r.logger.Warn("removing expired job output failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err),
			)
			continue
		}
		if err := r.store.MarkExpired(ctx, job.ID); err != nil {
			return reaped, err
		}
		reaped++
		r.logger.Debug("job expired",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldContentKey, job.ContentKey),
		)
	}
	return reaped, nil
}

// SweepStale fails jobs stuck in preparing past the stale threshold and
// removes whatever partial output their builds left behind.
func (r *Reaper) SweepStale(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-r.cfg.StaleThreshold())
	stale, err := r.store.StaleJobs(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, job := range stale {
		changed, err := r.store.FailStale(ctx, job.ID, staleFailureMessage)
		if err != nil {
			return failed, err
		}
		if !changed {
			// The build finished or was cancelled between the query and the
			// guarded write. Leave it alone.
			continue
		}
		if err := fileutil.RemoveDir(job.OutputRoot(r.cfg.Paths.CacheDir)); err != nil {
			r.logger.Warn("removing stale job output failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err),
			)
		}
		failed++
		r.logger.Warn("stale job failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Any("started_at", job.StartedAt),
		)
	}
	return failed, nil
}

// SweepOrphans removes directories under the cache root that no live job
// owns. These appear when a process dies between writing output and updating
// the store, or when a terminal job's cleanup was interrupted.
func (r *Reaper) SweepOrphans(ctx context.Context) (int, error) {
	live, err := r.store.LiveJobIDs(ctx)
	if err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(r.cfg.Paths.CacheDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := live[entry.Name()]; ok {
			continue
		}
		if err := fileutil.RemoveDir(jobs.OutputRootFor(r.cfg.Paths.CacheDir, entry.Name())); err != nil {
			r.logger.Warn("removing orphan directory failed",
				logging.String("dir", entry.Name()),
				logging.Error(err),
			)
			continue
		}
		removed++
		r.logger.Debug("orphan directory removed", logging.String("dir", entry.Name()))
	}
	return removed, nil
}
