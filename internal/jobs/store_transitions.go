package jobs

import (
	"context"
	"fmt"
	"time"
)

// Transitions are guarded by the current status in the WHERE clause, so a
// transition that races another orchestration run affects zero rows and is
// reported as ErrInvalidTransition. One worker owns a job from preparing to
// its terminal or ready state.

// MarkPreparing claims a pending job for building and stamps StartedAt.
func (s *Store) MarkPreparing(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE download_jobs SET status = ?, started_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusPreparing), now, now,
		id, string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("mark preparing: %w", err)
	}
	return requireTransition(res.RowsAffected())
}

// ReadyResult carries the build output persisted when a job becomes ready.
type ReadyResult struct {
	OutputParts    []string
	TotalSizeBytes int64
	FilesAdded     int
	SkippedFiles   []SkippedFile
	ExpiresAt      time.Time
}

// MarkReady records a successful build and makes the job reusable until
// ExpiresAt.
func (s *Store) MarkReady(ctx context.Context, id string, result ReadyResult) error {
	parts, err := marshalStrings(result.OutputParts)
	if err != nil {
		return err
	}
	skipped, err := marshalSkipped(result.SkippedFiles)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE download_jobs
         SET status = ?, output_parts = ?, total_size_bytes = ?, processed_files = ?,
             skipped_files = ?, error_message = NULL, completed_at = ?, expires_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusReady),
		parts,
		result.TotalSizeBytes,
		result.FilesAdded,
		skipped,
		now,
		result.ExpiresAt.UTC().Format(time.RFC3339Nano),
		now,
		id, string(StatusPreparing),
	)
	if err != nil {
		return fmt.Errorf("mark ready: %w", err)
	}
	return requireTransition(res.RowsAffected())
}

// MarkFailed records a build-fatal error. Valid from pending or preparing.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE download_jobs SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		string(StatusFailed), message, now, now,
		id, string(StatusPending), string(StatusPreparing),
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireTransition(res.RowsAffected())
}

// MarkCancelled cancels a job that has not yet reached a terminal state.
func (s *Store) MarkCancelled(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE download_jobs SET status = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?, ?, ?)`,
		string(StatusCancelled), now,
		id,
		string(StatusPending), string(StatusPreparing),
		string(StatusReady), string(StatusDownloading),
	)
	if err != nil {
		return fmt.Errorf("mark cancelled: %w", err)
	}
	return requireTransition(res.RowsAffected())
}

// MarkDownloading notes that the original requester has begun streaming a
// ready bundle. Already-downloading jobs pass through unchanged so a
// multi-part download does not trip the guard.
func (s *Store) MarkDownloading(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE download_jobs SET status = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		string(StatusDownloading), now,
		id, string(StatusReady), string(StatusDownloading),
	)
	if err != nil {
		return fmt.Errorf("mark downloading: %w", err)
	}
	return requireTransition(res.RowsAffected())
}

// MarkCompleted records that the requester finished consuming the bundle.
// The job stays reusable for cache hits until it expires.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE download_jobs SET status = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		string(StatusCompleted), now,
		id, string(StatusReady), string(StatusDownloading),
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return requireTransition(res.RowsAffected())
}

// MarkExpired retires a ready/completed job whose reuse window lapsed.
// Expiring an already-expired job is a no-op, keeping the sweep idempotent.
func (s *Store) MarkExpired(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE download_jobs SET status = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?, ?)`,
		string(StatusExpired), now,
		id, string(StatusReady), string(StatusDownloading), string(StatusCompleted),
	)
	if err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	return nil
}

// FailStale fails a preparing job the reaper judged crashed. Unlike
// MarkFailed this is a no-op when the job moved on, keeping sweeps safe to
// run concurrently with a build that just finished.
func (s *Store) FailStale(ctx context.Context, id, message string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE download_jobs SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusFailed), message, now, now,
		id, string(StatusPreparing),
	)
	if err != nil {
		return false, fmt.Errorf("fail stale job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func requireTransition(affected int64, err error) error {
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}
