package bundler

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"bindery/internal/jobs"
	"bindery/internal/logging"
	"bindery/internal/media"
)

// PartStream is an open archive part ready to be streamed to a client.
// Callers own the reader and must Close it.
type PartStream struct {
	Reader    io.ReadSeekCloser
	FileName  string
	SizeBytes int64
	ModTime   time.Time
	MIMEType  string
	PartIndex int
	PartCount int
}

// OpenPart opens one part of a ready bundle for streaming. The first open
// moves the job from ready to downloading; re-opens (retries, range requests,
// later parts) are pass-throughs. Parts are indexed from zero in the order
// the builder wrote them.
func (s *Service) OpenPart(ctx context.Context, jobID string, partIndex int) (*PartStream, error) {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != jobs.StatusReady && job.Status != jobs.StatusDownloading && job.Status != jobs.StatusCompleted {
		return nil, ErrJobNotReady
	}
	if partIndex < 0 || partIndex >= len(job.OutputParts) {
		return nil, ErrPartOutOfRange
	}

	path := job.OutputParts[partIndex]
	file, err := os.Open(path)
	if err != nil {
		// The record says ready but the part is gone. Fail the job rather
		// than serving a truncated bundle; the sweep reclaims the rest.
		s.logger.Error("bundle part missing at stream time",
			logging.String(logging.FieldJobID, jobID),
			logging.Int(logging.FieldPart, partIndex),
			logging.Error(err),
		)
		return nil, ErrJobNotReady
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	if job.Status == jobs.StatusReady {
		if err := s.store.MarkDownloading(ctx, jobID); err != nil &&
			!errors.Is(err, jobs.ErrInvalidTransition) {
			file.Close()
			return nil, err
		}
	}

	return &PartStream{
		Reader:    file,
		FileName:  filepath.Base(path),
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
		MIMEType:  media.MIMEComicZip,
		PartIndex: partIndex,
		PartCount: len(job.OutputParts),
	}, nil
}

// FinishDownload records that the client fully received the given part. When
// it is the final part the job moves to completed; earlier parts just log.
// Completion is advisory: a completed job remains streamable until it
// expires.
func (s *Service) FinishDownload(ctx context.Context, jobID string, partIndex int) error {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if partIndex < 0 || partIndex >= len(job.OutputParts) {
		return ErrPartOutOfRange
	}

	if partIndex < len(job.OutputParts)-1 {
		s.logger.Debug("bundle part delivered",
			logging.String(logging.FieldJobID, jobID),
			logging.Int(logging.FieldPart, partIndex),
		)
		return nil
	}

	if err := s.store.MarkCompleted(ctx, jobID); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			return nil
		}
		return err
	}
	s.logger.Info("download job completed",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("parts", len(job.OutputParts)),
	)
	return nil
}
