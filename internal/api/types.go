package api

import "time"

// CreateDownloadRequest is the body of POST /api/downloads.
type CreateDownloadRequest struct {
	UserID         string   `json:"user_id"`
	Kind           string   `json:"kind,omitempty"`
	FileIDs        []string `json:"file_ids"`
	ScopeID        string   `json:"scope_id,omitempty"`
	SplitEnabled   bool     `json:"split_enabled,omitempty"`
	SplitSizeBytes int64    `json:"split_size_bytes,omitempty"`
}

// CreateDownloadResponse is returned from POST /api/downloads.
type CreateDownloadResponse struct {
	JobID              string `json:"job_id"`
	Cached             bool   `json:"cached"`
	EstimatedSizeBytes int64  `json:"estimated_size_bytes"`
	FileCount          int    `json:"file_count"`
	NeedsConfirmation  bool   `json:"needs_confirmation"`
}

// SkippedFile reports a requested file left out of the bundle.
type SkippedFile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// JobView is the wire representation of a download job.
type JobView struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	Kind           string        `json:"kind"`
	Status         string        `json:"status"`
	ContentKey     string        `json:"content_key"`
	TotalFiles     int           `json:"total_files"`
	ProcessedFiles int           `json:"processed_files"`
	TotalSizeBytes int64         `json:"total_size_bytes"`
	OutputFileName string        `json:"output_file_name,omitempty"`
	PartCount      int           `json:"part_count"`
	PartNames      []string      `json:"part_names,omitempty"`
	SplitEnabled   bool          `json:"split_enabled"`
	SkippedFiles   []SkippedFile `json:"skipped_files,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	ExpiresAt      *time.Time    `json:"expires_at,omitempty"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobView `json:"job"`
}

// JobListResponse wraps a job listing.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// CacheStatsResponse is returned from GET /api/cache/stats.
type CacheStatsResponse struct {
	CacheRoot     string         `json:"cache_root"`
	JobsByStatus  map[string]int `json:"jobs_by_status"`
	ReusableJobs  int            `json:"reusable_jobs"`
	CacheDirBytes int64          `json:"cache_dir_bytes"`
	FreeBytes     int64          `json:"free_bytes"`
}

// CacheClearResponse is returned from POST /api/cache/clear.
type CacheClearResponse struct {
	Cleared int `json:"cleared"`
}

// DaemonStatus is returned from GET /api/status.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	JobDBPath    string         `json:"job_db_path"`
	LockFilePath string         `json:"lock_file_path"`
	CacheRoot    string         `json:"cache_root"`
	JobsByStatus map[string]int `json:"jobs_by_status"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
