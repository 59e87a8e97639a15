package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bindery/internal/jobs"
	"bindery/internal/testsupport"
)

func TestCreateAndGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := &jobs.Job{
		UserID:         "alice",
		Kind:           jobs.KindSeries,
		FileIDs:        []string{"f1", "f2"},
		ContentKey:     "abc123",
		Status:         jobs.StatusPending,
		TotalFiles:     2,
		TotalSizeBytes: 1000,
		OutputFileName: "Saga",
		SplitEnabled:   true,
		SplitSizeBytes: 512,
	}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected an ID to be assigned")
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.UserID != "alice" || fetched.Kind != jobs.KindSeries {
		t.Fatalf("unexpected job: %+v", fetched)
	}
	if len(fetched.FileIDs) != 2 || fetched.FileIDs[0] != "f1" {
		t.Fatalf("file IDs not round-tripped: %v", fetched.FileIDs)
	}
	if !fetched.SplitEnabled || fetched.SplitSizeBytes != 512 {
		t.Fatalf("split settings not round-tripped: %+v", fetched)
	}
	if fetched.CreatedAt.IsZero() || fetched.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.GetByID(context.Background(), "nope"); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "alice", []string{"f1"}, "key1")

	if err := store.MarkPreparing(ctx, job.ID); err != nil {
		t.Fatalf("MarkPreparing failed: %v", err)
	}
	fetched, _ := store.GetByID(ctx, job.ID)
	if fetched.Status != jobs.StatusPreparing || fetched.StartedAt == nil {
		t.Fatalf("preparing not recorded: %+v", fetched)
	}

	expires := time.Now().UTC().Add(time.Hour)
	ready := jobs.ReadyResult{
		OutputParts:    []string{"/cache/x/Saga.zip"},
		TotalSizeBytes: 900,
		FilesAdded:     1,
		SkippedFiles:   []jobs.SkippedFile{{ID: "f2", Name: "gone.cbz", Reason: "not found on disk"}},
		ExpiresAt:      expires,
	}
	if err := store.MarkReady(ctx, job.ID, ready); err != nil {
		t.Fatalf("MarkReady failed: %v", err)
	}
	fetched, _ = store.GetByID(ctx, job.ID)
	if fetched.Status != jobs.StatusReady {
		t.Fatalf("status = %s, want ready", fetched.Status)
	}
	if len(fetched.OutputParts) != 1 || fetched.OutputParts[0] != "/cache/x/Saga.zip" {
		t.Fatalf("parts not recorded: %v", fetched.OutputParts)
	}
	if len(fetched.SkippedFiles) != 1 || fetched.SkippedFiles[0].ID != "f2" {
		t.Fatalf("skips not recorded: %v", fetched.SkippedFiles)
	}
	if fetched.ExpiresAt == nil {
		t.Fatal("expiry not recorded")
	}

	if err := store.MarkDownloading(ctx, job.ID); err != nil {
		t.Fatalf("MarkDownloading failed: %v", err)
	}
	// Re-entry while already downloading is a pass-through, not an error.
	if err := store.MarkDownloading(ctx, job.ID); err != nil {
		t.Fatalf("repeat MarkDownloading failed: %v", err)
	}
	if err := store.MarkCompleted(ctx, job.ID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	fetched, _ = store.GetByID(ctx, job.ID)
	if fetched.Status != jobs.StatusCompleted || fetched.CompletedAt == nil {
		t.Fatalf("completion not recorded: %+v", fetched)
	}
}

func TestGuardedTransitionRejectsWrongSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "alice", []string{"f1"}, "key1")

	// pending -> completed skips the whole pipeline.
	if err := store.MarkCompleted(ctx, job.ID); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if err := store.MarkCancelled(ctx, job.ID); err != nil {
		t.Fatalf("MarkCancelled failed: %v", err)
	}
	// Terminal jobs accept no further transitions.
	if err := store.MarkPreparing(ctx, job.ID); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after cancel, got %v", err)
	}
}

func TestMarkFailedFromPreparing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "alice", []string{"f1"}, "key1")
	if err := store.MarkPreparing(ctx, job.ID); err != nil {
		t.Fatalf("MarkPreparing failed: %v", err)
	}
	if err := store.MarkFailed(ctx, job.ID, "disk full"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	fetched, _ := store.GetByID(ctx, job.ID)
	if fetched.Status != jobs.StatusFailed || fetched.ErrorMessage != "disk full" {
		t.Fatalf("failure not recorded: %+v", fetched)
	}
}

func TestMarkExpiredIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "alice", []string{"f1"}, "key1")
	if err := store.MarkExpired(ctx, job.ID); err != nil {
		t.Fatalf("MarkExpired failed: %v", err)
	}
	if err := store.MarkExpired(ctx, job.ID); err != nil {
		t.Fatalf("repeat MarkExpired failed: %v", err)
	}
}

func TestUpdateProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "alice", []string{"f1", "f2", "f3"}, "key1")
	if err := store.UpdateProgress(ctx, job.ID, 2); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	fetched, _ := store.GetByID(ctx, job.ID)
	if fetched.ProcessedFiles != 2 {
		t.Fatalf("ProcessedFiles = %d, want 2", fetched.ProcessedFiles)
	}
}

func TestCountActiveForUser(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewJob(t, store, "alice", []string{"f1"}, "key1")
	testsupport.NewJob(t, store, "bob", []string{"f2"}, "key2")

	count, err := store.CountActiveForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("CountActiveForUser failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	if err := store.MarkCancelled(ctx, first.ID); err != nil {
		t.Fatalf("MarkCancelled failed: %v", err)
	}
	count, err = store.CountActiveForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("CountActiveForUser failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("count after cancel = %d, want 0", count)
	}
}

func markReadyWithExpiry(t *testing.T, store *jobs.Store, id string, expires time.Time) {
	t.Helper()
	ctx := context.Background()
	if err := store.MarkPreparing(ctx, id); err != nil {
		t.Fatalf("MarkPreparing failed: %v", err)
	}
	err := store.MarkReady(ctx, id, jobs.ReadyResult{
		OutputParts:    []string{"/cache/" + id + "/bundle.zip"},
		TotalSizeBytes: 10,
		FilesAdded:     1,
		ExpiresAt:      expires,
	})
	if err != nil {
		t.Fatalf("MarkReady failed: %v", err)
	}
}

func TestFindReusable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	now := time.Now().UTC()

	live := testsupport.NewJob(t, store, "alice", []string{"f1"}, "samekey")
	markReadyWithExpiry(t, store, live.ID, now.Add(time.Hour))

	found, err := store.FindReusable(ctx, "samekey", now)
	if err != nil {
		t.Fatalf("FindReusable failed: %v", err)
	}
	if found == nil || found.ID != live.ID {
		t.Fatalf("expected job %s, got %+v", live.ID, found)
	}

	// Completed jobs remain reusable.
	if err := store.MarkDownloading(ctx, live.ID); err != nil {
		t.Fatalf("MarkDownloading failed: %v", err)
	}
	if err := store.MarkCompleted(ctx, live.ID); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	found, err = store.FindReusable(ctx, "samekey", now)
	if err != nil {
		t.Fatalf("FindReusable failed: %v", err)
	}
	if found == nil || found.ID != live.ID {
		t.Fatal("completed job should be reusable")
	}

	if found, _ := store.FindReusable(ctx, "otherkey", now); found != nil {
		t.Fatalf("unexpected match for different key: %+v", found)
	}
}

func TestFindReusableIgnoresExpired(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	now := time.Now().UTC()

	stale := testsupport.NewJob(t, store, "alice", []string{"f1"}, "key")
	markReadyWithExpiry(t, store, stale.ID, now.Add(-time.Minute))

	found, err := store.FindReusable(context.Background(), "key", now)
	if err != nil {
		t.Fatalf("FindReusable failed: %v", err)
	}
	if found != nil {
		t.Fatalf("expired job must not be reusable: %+v", found)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.NewJob(t, store, "alice", []string{"f1"}, "k1")
	testsupport.NewJob(t, store, "bob", []string{"f2"}, "k2")
	if err := store.MarkCancelled(ctx, a.ID); err != nil {
		t.Fatalf("MarkCancelled failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all jobs = %d, want 2", len(all))
	}

	cancelled, err := store.List(ctx, jobs.StatusCancelled)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(cancelled) != 1 || cancelled[0].ID != a.ID {
		t.Fatalf("unexpected filtered list: %+v", cancelled)
	}
}

func TestMaintenanceQueries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	now := time.Now().UTC()

	expired := testsupport.NewJob(t, store, "alice", []string{"f1"}, "k1")
	markReadyWithExpiry(t, store, expired.ID, now.Add(-time.Minute))

	stuck := testsupport.NewJob(t, store, "bob", []string{"f2"}, "k2")
	if err := store.MarkPreparing(ctx, stuck.ID); err != nil {
		t.Fatalf("MarkPreparing failed: %v", err)
	}

	cancelled := testsupport.NewJob(t, store, "carol", []string{"f3"}, "k3")
	if err := store.MarkCancelled(ctx, cancelled.ID); err != nil {
		t.Fatalf("MarkCancelled failed: %v", err)
	}

	expiredJobs, err := store.ExpiredJobs(ctx, now)
	if err != nil {
		t.Fatalf("ExpiredJobs failed: %v", err)
	}
	if len(expiredJobs) != 1 || expiredJobs[0].ID != expired.ID {
		t.Fatalf("unexpected expired set: %+v", expiredJobs)
	}

	staleJobs, err := store.StaleJobs(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("StaleJobs failed: %v", err)
	}
	if len(staleJobs) != 1 || staleJobs[0].ID != stuck.ID {
		t.Fatalf("unexpected stale set: %+v", staleJobs)
	}

	live, err := store.LiveJobIDs(ctx)
	if err != nil {
		t.Fatalf("LiveJobIDs failed: %v", err)
	}
	if _, ok := live[cancelled.ID]; ok {
		t.Fatal("terminal job should not be live")
	}
	if _, ok := live[expired.ID]; !ok {
		t.Fatal("ready job should be live")
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[jobs.StatusCancelled] != 1 || stats[jobs.StatusPreparing] != 1 || stats[jobs.StatusReady] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestFailStaleIsGuarded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "alice", []string{"f1"}, "k1")
	if err := store.MarkPreparing(ctx, job.ID); err != nil {
		t.Fatalf("MarkPreparing failed: %v", err)
	}

	changed, err := store.FailStale(ctx, job.ID, "timed out during preparation")
	if err != nil {
		t.Fatalf("FailStale failed: %v", err)
	}
	if !changed {
		t.Fatal("expected stale job to be failed")
	}

	// A second sweep of the same job is a no-op.
	changed, err = store.FailStale(ctx, job.ID, "timed out during preparation")
	if err != nil {
		t.Fatalf("repeat FailStale failed: %v", err)
	}
	if changed {
		t.Fatal("already-failed job should not change again")
	}
}

func TestRemove(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "alice", []string{"f1"}, "k1")
	removed, err := store.Remove(ctx, job.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}
	if _, err := store.GetByID(ctx, job.ID); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
}
