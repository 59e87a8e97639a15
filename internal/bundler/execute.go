package bundler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"bindery/internal/archive"
	"bindery/internal/fileutil"
	"bindery/internal/jobs"
	"bindery/internal/logging"
)

// launchBuild runs the job's build as a background goroutine. Job creation
// stays fast; callers poll job status for progress.
func (s *Service) launchBuild(jobID string) {
	s.builds.Add(1)
	go func() {
		defer s.builds.Done()
		if err := s.Execute(s.buildContext(), jobID); err != nil {
			s.logger.Error("download job build failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(err),
			)
		}
	}()
}

// Execute drives one job from pending through the archive build to ready,
// failed, or cancelled. It is normally invoked via launchBuild but is
// exported so tests and manual tooling can run builds synchronously.
func (s *Service) Execute(ctx context.Context, jobID string) error {
	if err := s.store.MarkPreparing(ctx, jobID); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			// Cancelled (or otherwise moved on) before the build started.
			return nil
		}
		return err
	}

	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	flag := s.registerCancelFlag(jobID)
	defer s.dropCancelFlag(jobID)

	result, buildErr := s.runBuild(ctx, job, flag)

	outputDir := job.OutputRoot(s.cfg.Paths.CacheDir)
	switch {
	case errors.Is(buildErr, archive.ErrCancelled):
		// The cancel path already moved the job to cancelled; our duty is
		// removing whatever the builder wrote before it noticed.
		if err := fileutil.RemoveDir(outputDir); err != nil {
			s.logger.Warn("cleanup after cancelled build failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(err),
			)
		}
		s.logger.Info("download job cancelled during build",
			logging.String(logging.FieldJobID, jobID),
		)
		return nil

	case buildErr != nil:
		if err := fileutil.RemoveDir(outputDir); err != nil {
			s.logger.Warn("cleanup after failed build failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(err),
			)
		}
		if err := s.store.MarkFailed(ctx, jobID, buildErr.Error()); err != nil &&
			!errors.Is(err, jobs.ErrInvalidTransition) {
			return err
		}
		return buildErr
	}

	ready := jobs.ReadyResult{
		OutputParts:    result.Parts,
		TotalSizeBytes: result.TotalBytesWritten,
		FilesAdded:     result.FilesAdded,
		SkippedFiles:   toSkippedFiles(result.Skipped),
		ExpiresAt:      time.Now().UTC().Add(s.cfg.JobTTL()),
	}
	if err := s.store.MarkReady(ctx, jobID, ready); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			// Cancelled while the last part was flushing; the output is
			// garbage now.
			_ = fileutil.RemoveDir(outputDir)
			return nil
		}
		// The build succeeded but the status write failed. The orphan sweep
		// will collect the directory; the cache re-check keeps the stale
		// record from ever serving missing files.
		return err
	}

	s.logger.Info("download job ready",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("parts", len(result.Parts)),
		logging.Int("files_added", result.FilesAdded),
		logging.Int("files_skipped", len(result.Skipped)),
		logging.Int64("bytes_written", result.TotalBytesWritten),
	)
	return nil
}

func (s *Service) runBuild(ctx context.Context, job *jobs.Job, flag *atomic.Bool) (*archive.Result, error) {
	infos, err := s.catalog.Resolve(ctx, job.FileIDs)
	if err != nil {
		return nil, err
	}

	inputs := make([]archive.Input, 0, len(infos))
	for _, info := range infos {
		inputs = append(inputs, archive.Input{
			ID:   info.ID,
			Path: info.AbsolutePath,
			Name: info.DisplayName,
		})
	}

	builder := archive.New(archive.Options{
		OutputDir:      job.OutputRoot(s.cfg.Paths.CacheDir),
		BaseName:       job.OutputFileName,
		SplitEnabled:   job.SplitEnabled,
		SplitSizeBytes: job.SplitSizeBytes,
		Cancelled:      flag.Load,
		Progress: func(processed int) {
			if err := s.store.UpdateProgress(ctx, job.ID, processed); err != nil {
				s.logger.Debug("progress update failed",
					logging.String(logging.FieldJobID, job.ID),
					logging.Error(err),
				)
			}
		},
		Logger: s.logger,
	})

	return builder.Build(ctx, inputs)
}

func toSkippedFiles(skips []archive.Skip) []jobs.SkippedFile {
	if len(skips) == 0 {
		return nil
	}
	out := make([]jobs.SkippedFile, len(skips))
	for i, skip := range skips {
		out[i] = jobs.SkippedFile{ID: skip.ID, Name: skip.Name, Reason: skip.Reason}
	}
	return out
}
