package api_test

import (
	"testing"
	"time"

	"bindery/internal/api"
	"bindery/internal/jobs"
)

func TestFromJobReducesPartPathsToBaseNames(t *testing.T) {
	now := time.Now().UTC()
	job := &jobs.Job{
		ID:             "job-1",
		UserID:         "alice",
		Kind:           jobs.KindSeries,
		Status:         jobs.StatusReady,
		ContentKey:     "abcd1234abcd1234",
		TotalFiles:     2,
		ProcessedFiles: 2,
		TotalSizeBytes: 2048,
		OutputFileName: "Saga",
		OutputParts: []string{
			"/var/cache/bindery/job-1/Saga Part 1.zip",
			"/var/cache/bindery/job-1/Saga Part 2.zip",
		},
		SkippedFiles: []jobs.SkippedFile{{ID: "f9", Name: "gone.cbz", Reason: "file missing"}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	view := api.FromJob(job)
	if view.PartCount != 2 {
		t.Fatalf("part count = %d, want 2", view.PartCount)
	}
	if view.PartNames[0] != "Saga Part 1.zip" || view.PartNames[1] != "Saga Part 2.zip" {
		t.Fatalf("part names leaked paths: %v", view.PartNames)
	}
	if view.Status != "ready" || view.Kind != "series" {
		t.Fatalf("enum conversion wrong: status=%q kind=%q", view.Status, view.Kind)
	}
	if len(view.SkippedFiles) != 1 || view.SkippedFiles[0].Reason != "file missing" {
		t.Fatalf("skipped files not carried: %+v", view.SkippedFiles)
	}
}

func TestFromJobsEmpty(t *testing.T) {
	if api.FromJobs(nil) != nil {
		t.Fatal("empty input should produce nil")
	}
}

func TestStatusCounts(t *testing.T) {
	counts := api.StatusCounts(map[jobs.Status]int{
		jobs.StatusReady:  3,
		jobs.StatusFailed: 1,
	})
	if counts["ready"] != 3 || counts["failed"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if empty := api.StatusCounts(nil); empty == nil || len(empty) != 0 {
		t.Fatalf("nil stats should yield an empty map, got %v", empty)
	}
}
