package jobs

import (
	"strings"
	"time"
)

// Kind classifies what scope a download request covers.
type Kind string

const (
	KindSingleFile Kind = "single-file"
	KindSeries     Kind = "series"
	KindSelection  Kind = "ad-hoc-selection"
)

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case KindSingleFile, KindSeries, KindSelection:
		return normalized, true
	}
	return "", false
}

// Status represents the lifecycle of a download job.
type Status string

const (
	StatusPending     Status = "pending"
	StatusPreparing   Status = "preparing"
	StatusReady       Status = "ready"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusExpired     Status = "expired"
	StatusCancelled   Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusPreparing,
	StatusReady,
	StatusDownloading,
	StatusCompleted,
	StatusFailed,
	StatusExpired,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// activeStatuses are the states counted against the one-build-per-user rule.
var activeStatuses = map[Status]struct{}{
	StatusPending:   {},
	StatusPreparing: {},
}

// terminalStatuses never transition again and their on-disk output is garbage.
var terminalStatuses = map[Status]struct{}{
	StatusFailed:    {},
	StatusExpired:   {},
	StatusCancelled: {},
}

// reusableStatuses can serve a cache hit; ready and completed differ only in
// whether the original requester finished consuming the artifact.
var reusableStatuses = map[Status]struct{}{
	StatusReady:     {},
	StatusCompleted: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status never transitions again.
func IsTerminal(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// IsActive reports whether a status counts against the per-user build limit.
func IsActive(status Status) bool {
	_, ok := activeStatuses[status]
	return ok
}

// IsReusable reports whether a job in this status may serve a cache hit.
func IsReusable(status Status) bool {
	_, ok := reusableStatuses[status]
	return ok
}

// SkippedFile records one requested file that could not be bundled.
type SkippedFile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Job represents a download job persisted in SQLite.
type Job struct {
	ID             string
	UserID         string
	Kind           Kind
	FileIDs        []string
	ContentKey     string
	Status         Status
	TotalFiles     int
	ProcessedFiles int
	TotalSizeBytes int64
	OutputFileName string
	OutputParts    []string
	SplitEnabled   bool
	SplitSizeBytes int64
	SkippedFiles   []SkippedFile
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	ExpiresAt      *time.Time
}

// IsExpired reports whether the job's reuse window has lapsed at now.
func (j *Job) IsExpired(now time.Time) bool {
	return j.ExpiresAt != nil && j.ExpiresAt.Before(now)
}
