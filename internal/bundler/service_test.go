package bundler_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"bindery/internal/bundler"
	"bindery/internal/catalog"
	"bindery/internal/config"
	"bindery/internal/jobs"
	"bindery/internal/logging"
	"bindery/internal/testsupport"
)

func newService(t *testing.T, cfg *config.Config, cat catalog.Catalog) (*bundler.Service, *jobs.Store) {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	svc := bundler.NewService(cfg, store, cat, logging.NewNop())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc, store
}

func waitForStatus(t *testing.T, store *jobs.Store, jobID string, want ...jobs.Status) *jobs.Job {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		for _, status := range want {
			if job.Status == status {
				return job
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := store.GetByID(context.Background(), jobID)
	t.Fatalf("job %s never reached %v; last status %s (error %q)", jobID, want, job.Status, job.ErrorMessage)
	return nil
}

func TestCreateJobBuildsToReady(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.NewFakeCatalog()
	dir := t.TempDir()
	cat.AddScratchFile(t, dir, "f1", "Issue 001.cbz", 100)
	cat.AddScratchFile(t, dir, "f2", "Issue 002.cbz", 100)
	cat.SetCollectionName("series", "s1", "Saga")

	svc, store := newService(t, cfg, cat)

	result, err := svc.CreateJob(context.Background(), bundler.CreateRequest{
		UserID:  "alice",
		Kind:    jobs.KindSeries,
		FileIDs: []string{"f1", "f2"},
		ScopeID: "s1",
	})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if result.Cached {
		t.Fatal("first request cannot be a cache hit")
	}
	if result.FileCount != 2 {
		t.Fatalf("FileCount = %d, want 2", result.FileCount)
	}

	job := waitForStatus(t, store, result.JobID, jobs.StatusReady)
	if len(job.OutputParts) != 1 {
		t.Fatalf("parts = %v, want one", job.OutputParts)
	}
	if _, err := os.Stat(job.OutputParts[0]); err != nil {
		t.Fatalf("part missing on disk: %v", err)
	}
	if job.OutputFileName != "Saga" {
		t.Fatalf("output name = %q, want series name", job.OutputFileName)
	}
	if job.ExpiresAt == nil || !job.ExpiresAt.After(time.Now()) {
		t.Fatalf("expiry not set in the future: %v", job.ExpiresAt)
	}
}

func TestCreateJobCacheHitIgnoresRequestOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.NewFakeCatalog()
	dir := t.TempDir()
	cat.AddScratchFile(t, dir, "f1", "Issue 001.cbz", 50)
	cat.AddScratchFile(t, dir, "f2", "Issue 002.cbz", 50)

	svc, store := newService(t, cfg, cat)
	ctx := context.Background()

	first, err := svc.CreateJob(ctx, bundler.CreateRequest{UserID: "alice", FileIDs: []string{"f1", "f2"}})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	waitForStatus(t, store, first.JobID, jobs.StatusReady)

	second, err := svc.CreateJob(ctx, bundler.CreateRequest{UserID: "bob", FileIDs: []string{"f2", "f1"}})
	if err != nil {
		t.Fatalf("second CreateJob failed: %v", err)
	}
	if !second.Cached {
		t.Fatal("expected a cache hit for the permuted file set")
	}
	if second.JobID != first.JobID {
		t.Fatalf("cache hit returned job %s, want %s", second.JobID, first.JobID)
	}
}

func TestCreateJobCacheRejectedWhenPartsMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.NewFakeCatalog()
	dir := t.TempDir()
	cat.AddScratchFile(t, dir, "f1", "Issue 001.cbz", 50)

	svc, store := newService(t, cfg, cat)
	ctx := context.Background()

	first, err := svc.CreateJob(ctx, bundler.CreateRequest{UserID: "alice", FileIDs: []string{"f1"}})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	ready := waitForStatus(t, store, first.JobID, jobs.StatusReady)

	// Simulate external deletion of the cached bundle.
	if err := os.Remove(ready.OutputParts[0]); err != nil {
		t.Fatalf("remove part: %v", err)
	}

	second, err := svc.CreateJob(ctx, bundler.CreateRequest{UserID: "bob", FileIDs: []string{"f1"}})
	if err != nil {
		t.Fatalf("second CreateJob failed: %v", err)
	}
	if second.Cached {
		t.Fatal("cache record without on-disk parts must not be served")
	}
	if second.JobID == first.JobID {
		t.Fatal("expected a fresh job")
	}
	waitForStatus(t, store, second.JobID, jobs.StatusReady)
}

func TestCreateJobRejectsEmptyRequest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, _ := newService(t, cfg, testsupport.NewFakeCatalog())

	_, err := svc.CreateJob(context.Background(), bundler.CreateRequest{UserID: "alice"})
	if !errors.Is(err, bundler.ErrEmptyRequest) {
		t.Fatalf("expected ErrEmptyRequest, got %v", err)
	}
}

func TestCreateJobRejectsFullyMissingSet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.NewFakeCatalog()
	cat.AddFile(catalog.FileInfo{ID: "f1", AbsolutePath: "/nowhere/a.cbz", DisplayName: "a.cbz", SizeBytes: 10})

	svc, _ := newService(t, cfg, cat)

	_, err := svc.CreateJob(context.Background(), bundler.CreateRequest{UserID: "alice", FileIDs: []string{"f1", "ghost"}})
	if !errors.Is(err, bundler.ErrNoFilesAvailable) {
		t.Fatalf("expected ErrNoFilesAvailable, got %v", err)
	}
}

func TestCreateJobEnforcesSingleActiveJobPerUser(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.NewFakeCatalog()
	dir := t.TempDir()
	cat.AddScratchFile(t, dir, "f1", "Issue 001.cbz", 50)

	svc, store := newService(t, cfg, cat)

	// A pending job seeded directly in the store stands in for an in-flight
	// build.
	testsupport.NewJob(t, store, "alice", []string{"other"}, "otherkey")

	_, err := svc.CreateJob(context.Background(), bundler.CreateRequest{UserID: "alice", FileIDs: []string{"f1"}})
	if !errors.Is(err, bundler.ErrActiveJobExists) {
		t.Fatalf("expected ErrActiveJobExists, got %v", err)
	}

	// Another user is unaffected.
	if _, err := svc.CreateJob(context.Background(), bundler.CreateRequest{UserID: "bob", FileIDs: []string{"f1"}}); err != nil {
		t.Fatalf("other user's request failed: %v", err)
	}
}

func TestExecuteFailsWhenEverythingMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.NewFakeCatalog()
	dir := t.TempDir()
	info := cat.AddScratchFile(t, dir, "f1", "Issue 001.cbz", 50)

	svc, store := newService(t, cfg, cat)

	result, err := svc.CreateJob(context.Background(), bundler.CreateRequest{UserID: "alice", FileIDs: []string{"f1"}})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	// Delete the file between estimate and build; the builder skips it and
	// the empty bundle fails the job.
	_ = os.Remove(info.AbsolutePath)

	job := waitForStatus(t, store, result.JobID, jobs.StatusReady, jobs.StatusFailed)
	if job.Status == jobs.StatusReady {
		// The build won the race before the deletion; nothing to assert.
		t.Skip("build completed before the file was removed")
	}
	if job.ErrorMessage == "" {
		t.Fatal("failure should record an error message")
	}
	if _, err := os.Stat(job.OutputRoot(cfg.Paths.CacheDir)); !os.IsNotExist(err) {
		t.Fatalf("failed job output should be removed: %v", err)
	}
}

func TestCancelReadyJobRemovesOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.NewFakeCatalog()
	dir := t.TempDir()
	cat.AddScratchFile(t, dir, "f1", "Issue 001.cbz", 50)

	svc, store := newService(t, cfg, cat)
	ctx := context.Background()

	result, err := svc.CreateJob(ctx, bundler.CreateRequest{UserID: "alice", FileIDs: []string{"f1"}})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	ready := waitForStatus(t, store, result.JobID, jobs.StatusReady)

	if err := svc.Cancel(ctx, result.JobID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	job, _ := store.GetByID(ctx, result.JobID)
	if job.Status != jobs.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", job.Status)
	}
	if _, err := os.Stat(ready.OutputParts[0]); !os.IsNotExist(err) {
		t.Fatalf("cancelled job output should be removed: %v", err)
	}
}

func TestCancelRejectsTerminalJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, store := newService(t, cfg, testsupport.NewFakeCatalog())
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "alice", []string{"f1"}, "k1")
	if err := store.MarkCancelled(ctx, job.ID); err != nil {
		t.Fatalf("MarkCancelled failed: %v", err)
	}
	if err := svc.Cancel(ctx, job.ID); !errors.Is(err, bundler.ErrNotCancellable) {
		t.Fatalf("expected ErrNotCancellable, got %v", err)
	}
}
