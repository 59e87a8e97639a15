package bundler

import (
	"context"
	"fmt"
	"strings"

	"bindery/internal/contentkey"
	"bindery/internal/jobs"
	"bindery/internal/logging"
	"bindery/internal/textutil"
)

// fallbackBundleName names bundles when the catalog has no collection name
// for the request scope.
const fallbackBundleName = "Comics Bundle"

// CreateRequest describes a bundle request.
type CreateRequest struct {
	UserID  string
	Kind    jobs.Kind
	FileIDs []string
	// ScopeID identifies the series or file the request was made against,
	// used only for default output naming.
	ScopeID string
	// SplitEnabled bounds parts to SplitSizeBytes; zero means the
	// configured default part size.
	SplitEnabled   bool
	SplitSizeBytes int64
}

// CreateResult is returned synchronously from CreateJob.
type CreateResult struct {
	JobID              string
	Cached             bool
	EstimatedSizeBytes int64
	FileCount          int
	NeedsConfirmation  bool
}

// CreateJob validates a request and either returns a reusable cached job or
// persists a new one and launches its build in the background.
//
// Rejections are synchronous: an empty or fully-missing file set never
// creates a job, and a user with a build already in flight must wait or
// cancel it. A cache hit consumes no build resources and bypasses that
// limit.
func (s *Service) CreateJob(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if len(req.FileIDs) == 0 {
		return nil, ErrEmptyRequest
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("create job: user id is required")
	}
	if req.Kind == "" {
		req.Kind = jobs.KindSelection
	}

	key := contentkey.Key(req.FileIDs)
	if key == "" {
		return nil, ErrEmptyRequest
	}

	if cached, err := s.findCachedJob(ctx, key); err != nil {
		return nil, err
	} else if cached != nil {
		s.logger.Info("serving bundle from cache",
			logging.String(logging.FieldJobID, cached.ID),
			logging.String(logging.FieldUserID, req.UserID),
			logging.String(logging.FieldContentKey, key),
		)
		return &CreateResult{
			JobID:              cached.ID,
			Cached:             true,
			EstimatedSizeBytes: cached.TotalSizeBytes,
			FileCount:          cached.TotalFiles,
		}, nil
	}

	active, err := s.store.CountActiveForUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, ErrActiveJobExists
	}

	estimate, err := s.estimator.Estimate(ctx, req.FileIDs)
	if err != nil {
		return nil, err
	}
	if estimate.FileCount == 0 {
		return nil, ErrNoFilesAvailable
	}

	splitSize := req.SplitSizeBytes
	if splitSize <= 0 {
		splitSize = s.cfg.Downloads.SplitSizeBytes
	}

	job := &jobs.Job{
		UserID:         req.UserID,
		Kind:           req.Kind,
		FileIDs:        req.FileIDs,
		ContentKey:     key,
		Status:         jobs.StatusPending,
		TotalFiles:     estimate.FileCount,
		TotalSizeBytes: estimate.TotalSizeBytes,
		OutputFileName: s.deriveOutputName(ctx, req),
		SplitEnabled:   req.SplitEnabled,
		SplitSizeBytes: splitSize,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("download job created",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldUserID, req.UserID),
		logging.String(logging.FieldContentKey, key),
		logging.Int("file_count", estimate.FileCount),
		logging.Int64("estimated_bytes", estimate.TotalSizeBytes),
		logging.Bool("split", req.SplitEnabled),
	)

	s.launchBuild(job.ID)

	return &CreateResult{
		JobID:              job.ID,
		EstimatedSizeBytes: estimate.TotalSizeBytes,
		FileCount:          estimate.FileCount,
		NeedsConfirmation:  estimate.NeedsConfirmation,
	}, nil
}

func (s *Service) deriveOutputName(ctx context.Context, req CreateRequest) string {
	name, err := s.catalog.ResolveCollectionName(ctx, string(req.Kind), req.ScopeID)
	if err != nil {
		s.logger.Warn("collection name lookup failed", logging.Error(err))
		name = ""
	}
	name = textutil.SanitizeFileName(name)
	if name == "" {
		name = fallbackBundleName
	}
	return name
}
