package bundler

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"bindery/internal/fileutil"
	"bindery/internal/jobs"
	"bindery/internal/logging"
)

// findCachedJob returns a reusable job for contentKey after verifying every
// recorded part still exists on disk. A candidate with any missing part is
// rejected outright; stale or partial cache entries are never served.
func (s *Service) findCachedJob(ctx context.Context, contentKey string) (*jobs.Job, error) {
	job, err := s.store.FindReusable(ctx, contentKey, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if job == nil || len(job.OutputParts) == 0 {
		return nil, nil
	}
	for _, part := range job.OutputParts {
		if !fileutil.FileExists(part) {
			s.logger.Warn("cached bundle rejected: part missing from disk",
				logging.String(logging.FieldJobID, job.ID),
				logging.String(logging.FieldContentKey, contentKey),
				logging.String("missing_part", part),
			)
			return nil, nil
		}
	}
	return job, nil
}

// CacheStats summarizes the download cache.
type CacheStats struct {
	CacheRoot     string
	JobsByStatus  map[jobs.Status]int
	ReusableJobs  int
	CacheDirBytes int64
	FreeBytes     int64
}

// CacheStats reports job counts, on-disk cache usage, and remaining
// filesystem space under the cache root.
func (s *Service) CacheStats(ctx context.Context) (*CacheStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	used, err := fileutil.DirSize(s.cfg.Paths.CacheDir)
	if err != nil {
		return nil, err
	}

	out := &CacheStats{
		CacheRoot:     s.cfg.Paths.CacheDir,
		JobsByStatus:  stats,
		CacheDirBytes: used,
	}
	for status, count := range stats {
		if jobs.IsReusable(status) {
			out.ReusableJobs += count
		}
	}

	var fsStat unix.Statfs_t
	if err := unix.Statfs(s.cfg.Paths.CacheDir, &fsStat); err == nil {
		out.FreeBytes = int64(fsStat.Bavail) * fsStat.Bsize
	}

	return out, nil
}

// ClearCache expires every reusable job, deletes its output, and then sweeps
// the whole cache root so nothing unaccounted-for survives. Jobs currently
// building are untouched.
func (s *Service) ClearCache(ctx context.Context) (int, error) {
	reusable, err := s.store.List(ctx, jobs.StatusReady, jobs.StatusDownloading, jobs.StatusCompleted)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, job := range reusable {
		if err := fileutil.RemoveDir(job.OutputRoot(s.cfg.Paths.CacheDir)); err != nil {
			s.logger.Warn("removing job output failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err),
			)
			continue
		}
		if err := s.store.MarkExpired(ctx, job.ID); err != nil {
			return cleared, err
		}
		cleared++
	}

	if err := s.sweepCacheRoot(ctx); err != nil {
		return cleared, err
	}
	return cleared, nil
}

// sweepCacheRoot removes directories under the cache root that no live job
// owns.
func (s *Service) sweepCacheRoot(ctx context.Context) error {
	live, err := s.store.LiveJobIDs(ctx)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(s.cfg.Paths.CacheDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := live[entry.Name()]; ok {
			continue
		}
		if err := fileutil.RemoveDir(jobs.OutputRootFor(s.cfg.Paths.CacheDir, entry.Name())); err != nil {
			s.logger.Warn("orphan removal failed",
				logging.String("dir", entry.Name()),
				logging.Error(err),
			)
		}
	}
	return nil
}
