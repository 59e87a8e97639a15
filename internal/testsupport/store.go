package testsupport

import (
	"context"
	"testing"

	"bindery/internal/config"
	"bindery/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob persists a pending job for tests using the provided store.
func NewJob(t testing.TB, store *jobs.Store, userID string, fileIDs []string, contentKey string) *jobs.Job {
	t.Helper()

	job := &jobs.Job{
		UserID:     userID,
		Kind:       jobs.KindSelection,
		FileIDs:    fileIDs,
		ContentKey: contentKey,
		Status:     jobs.StatusPending,
		TotalFiles: len(fileIDs),
	}
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}
