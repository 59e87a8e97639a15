package bundler_test

import (
	"errors"
	"io"
	"testing"

	"context"

	"bindery/internal/bundler"
	"bindery/internal/jobs"
	"bindery/internal/testsupport"
)

func readyJob(t *testing.T) (*bundler.Service, *jobs.Store, string) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cat := testsupport.NewFakeCatalog()
	dir := t.TempDir()
	cat.AddScratchFile(t, dir, "f1", "Issue 001.cbz", 200)

	svc, store := newService(t, cfg, cat)
	result, err := svc.CreateJob(context.Background(), bundler.CreateRequest{UserID: "alice", FileIDs: []string{"f1"}})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	waitForStatus(t, store, result.JobID, jobs.StatusReady)
	return svc, store, result.JobID
}

func TestOpenPartStreamsAndMarksDownloading(t *testing.T) {
	svc, store, jobID := readyJob(t)
	ctx := context.Background()

	stream, err := svc.OpenPart(ctx, jobID, 0)
	if err != nil {
		t.Fatalf("OpenPart failed: %v", err)
	}
	defer stream.Reader.Close()

	if stream.PartCount != 1 || stream.PartIndex != 0 {
		t.Fatalf("unexpected part metadata: %+v", stream)
	}
	if stream.SizeBytes == 0 {
		t.Fatal("expected a non-empty part")
	}

	data, err := io.ReadAll(stream.Reader)
	if err != nil {
		t.Fatalf("read part: %v", err)
	}
	if int64(len(data)) != stream.SizeBytes {
		t.Fatalf("read %d bytes, header said %d", len(data), stream.SizeBytes)
	}

	job, _ := store.GetByID(ctx, jobID)
	if job.Status != jobs.StatusDownloading {
		t.Fatalf("status = %s, want downloading", job.Status)
	}
}

func TestOpenPartOutOfRange(t *testing.T) {
	svc, _, jobID := readyJob(t)

	if _, err := svc.OpenPart(context.Background(), jobID, 5); !errors.Is(err, bundler.ErrPartOutOfRange) {
		t.Fatalf("expected ErrPartOutOfRange, got %v", err)
	}
	if _, err := svc.OpenPart(context.Background(), jobID, -1); !errors.Is(err, bundler.ErrPartOutOfRange) {
		t.Fatalf("expected ErrPartOutOfRange for negative index, got %v", err)
	}
}

func TestOpenPartRejectsUnreadyJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, store := newService(t, cfg, testsupport.NewFakeCatalog())

	job := testsupport.NewJob(t, store, "alice", []string{"f1"}, "k1")
	if _, err := svc.OpenPart(context.Background(), job.ID, 0); !errors.Is(err, bundler.ErrJobNotReady) {
		t.Fatalf("expected ErrJobNotReady, got %v", err)
	}
}

func TestFinishDownloadCompletesOnLastPart(t *testing.T) {
	svc, store, jobID := readyJob(t)
	ctx := context.Background()

	stream, err := svc.OpenPart(ctx, jobID, 0)
	if err != nil {
		t.Fatalf("OpenPart failed: %v", err)
	}
	stream.Reader.Close()

	if err := svc.FinishDownload(ctx, jobID, 0); err != nil {
		t.Fatalf("FinishDownload failed: %v", err)
	}
	job, _ := store.GetByID(ctx, jobID)
	if job.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}

	// A completed job remains streamable until it expires.
	again, err := svc.OpenPart(ctx, jobID, 0)
	if err != nil {
		t.Fatalf("OpenPart after completion failed: %v", err)
	}
	again.Reader.Close()
}
