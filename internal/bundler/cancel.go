package bundler

import (
	"context"
	"errors"

	"bindery/internal/fileutil"
	"bindery/internal/jobs"
	"bindery/internal/logging"
)

// Cancel stops a job. Cancellation is cooperative for a build in flight: the
// status flips to cancelled immediately and the builder's flag is set, so the
// build exits at its next file boundary and removes its partial output. For
// a ready/downloading job there is no build to interrupt; the output is
// deleted here, unconditionally.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if jobs.IsTerminal(job.Status) || job.Status == jobs.StatusCompleted {
		return ErrNotCancellable
	}

	if err := s.store.MarkCancelled(ctx, jobID); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			return ErrNotCancellable
		}
		return err
	}

	if flag := s.cancelFlag(jobID); flag != nil {
		// A build is in flight; it observes the flag before the next file
		// and removes its own partial output.
		flag.Store(true)
		s.logger.Info("cancellation requested for in-flight build",
			logging.String(logging.FieldJobID, jobID),
		)
		return nil
	}

	if err := fileutil.RemoveDir(job.OutputRoot(s.cfg.Paths.CacheDir)); err != nil {
		s.logger.Warn("removing cancelled job output failed",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err),
		)
	}
	s.logger.Info("download job cancelled",
		logging.String(logging.FieldJobID, jobID),
		logging.String("previous_status", string(job.Status)),
	)
	return nil
}
