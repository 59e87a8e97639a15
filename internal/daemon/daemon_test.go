package daemon_test

import (
	"context"
	"testing"

	"bindery/internal/bundler"
	"bindery/internal/daemon"
	"bindery/internal/logging"
	"bindery/internal/testsupport"
)

func TestDaemonStartEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := bundler.NewService(cfg, store, testsupport.NewFakeCatalog(), logging.NewNop())

	d, err := daemon.New(cfg, store, svc, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("daemon should report running")
	}
	if status.LockFilePath == "" || status.JobDBPath == "" {
		t.Fatalf("incomplete status: %+v", status)
	}

	secondStore := testsupport.MustOpenStore(t, cfg)
	secondSvc := bundler.NewService(cfg, secondStore, testsupport.NewFakeCatalog(), logging.NewNop())
	second, err := daemon.New(cfg, secondStore, secondSvc, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}
}

func TestDaemonStopIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := bundler.NewService(cfg, store, testsupport.NewFakeCatalog(), logging.NewNop())

	d, err := daemon.New(cfg, store, svc, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	d.Stop()
	d.Stop()

	if d.Status(context.Background()).Running {
		t.Fatal("daemon should report stopped")
	}
}
