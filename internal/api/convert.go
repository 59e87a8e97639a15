package api

import (
	"path/filepath"

	"bindery/internal/jobs"
)

// FromJob converts a stored job into its wire representation. Output part
// paths are reduced to base names so absolute cache paths never leave the
// daemon.
func FromJob(job *jobs.Job) JobView {
	view := JobView{
		ID:             job.ID,
		UserID:         job.UserID,
		Kind:           string(job.Kind),
		Status:         string(job.Status),
		ContentKey:     job.ContentKey,
		TotalFiles:     job.TotalFiles,
		ProcessedFiles: job.ProcessedFiles,
		TotalSizeBytes: job.TotalSizeBytes,
		OutputFileName: job.OutputFileName,
		PartCount:      len(job.OutputParts),
		SplitEnabled:   job.SplitEnabled,
		ErrorMessage:   job.ErrorMessage,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
		ExpiresAt:      job.ExpiresAt,
	}
	for _, part := range job.OutputParts {
		view.PartNames = append(view.PartNames, filepath.Base(part))
	}
	for _, skip := range job.SkippedFiles {
		view.SkippedFiles = append(view.SkippedFiles, SkippedFile{
			ID:     skip.ID,
			Name:   skip.Name,
			Reason: skip.Reason,
		})
	}
	return view
}

// FromJobs converts a slice of jobs.
func FromJobs(list []*jobs.Job) []JobView {
	if len(list) == 0 {
		return nil
	}
	out := make([]JobView, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job))
	}
	return out
}

// StatusCounts converts store statistics to the wire map.
func StatusCounts(stats map[jobs.Status]int) map[string]int {
	if len(stats) == 0 {
		return map[string]int{}
	}
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}
