package jobs

import (
	"context"
	"fmt"
	"time"
)

// ExpiredJobs returns ready/downloading/completed jobs whose reuse window has
// lapsed at now, oldest first. The reaper deletes their output and marks them
// expired.
func (s *Store) ExpiredJobs(ctx context.Context, now time.Time) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM download_jobs
         WHERE status IN (?, ?, ?) AND expires_at IS NOT NULL AND expires_at < ?
         ORDER BY expires_at`,
		string(StatusReady),
		string(StatusDownloading),
		string(StatusCompleted),
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query expired jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// StaleJobs returns jobs stuck in preparing since before cutoff, presumed
// crashed mid-build.
func (s *Store) StaleJobs(ctx context.Context, cutoff time.Time) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM download_jobs
         WHERE status = ? AND started_at IS NOT NULL AND started_at < ?
         ORDER BY started_at`,
		string(StatusPreparing),
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query stale jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// LiveJobIDs returns the IDs of all jobs not in a terminal state. Directories
// under the cache root whose name is absent from this set are orphans.
func (s *Store) LiveJobIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id FROM download_jobs WHERE status NOT IN (?, ?, ?)`,
		string(StatusFailed),
		string(StatusExpired),
		string(StatusCancelled),
	)
	if err != nil {
		return nil, fmt.Errorf("query live job ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM download_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
