package jobs

import "path/filepath"

// OutputRoot returns the job-scoped directory under the download cache root.
// Job IDs are UUIDs, so the segment needs no sanitization and no two jobs
// ever share a directory.
func (j *Job) OutputRoot(cacheRoot string) string {
	if cacheRoot == "" || j == nil || j.ID == "" {
		return ""
	}
	return filepath.Join(cacheRoot, j.ID)
}

// OutputRootFor is OutputRoot for callers that only hold a job ID.
func OutputRootFor(cacheRoot, jobID string) string {
	if cacheRoot == "" || jobID == "" {
		return ""
	}
	return filepath.Join(cacheRoot, jobID)
}
