package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bindery/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("resolved path = %s, want %s", resolved, path)
	}
	if cfg.Downloads.SplitSizeBytes != int64(2)<<30 {
		t.Fatalf("default split size = %d, want 2 GiB", cfg.Downloads.SplitSizeBytes)
	}
	if cfg.JobTTL() != 24*time.Hour {
		t.Fatalf("default job TTL = %s, want 24h", cfg.JobTTL())
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("default log format = %q", cfg.Logging.Format)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
library_db = "` + filepath.Join(dir, "library.db") + `"
cache_dir = "` + filepath.Join(dir, "cache") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
api_bind = "127.0.0.1:9999"

[downloads]
split_size_bytes = 1048576
job_ttl_hours = 48

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Downloads.SplitSizeBytes != 1048576 {
		t.Fatalf("split size = %d, want 1048576", cfg.Downloads.SplitSizeBytes)
	}
	if cfg.JobTTL() != 48*time.Hour {
		t.Fatalf("job TTL = %s, want 48h", cfg.JobTTL())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Paths.APIBind != "127.0.0.1:9999" {
		t.Fatalf("api bind = %q", cfg.Paths.APIBind)
	}
}

func TestLoadRejectsSharedCacheAndLogDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	shared := filepath.Join(dir, "data")
	content := `
[paths]
cache_dir = "` + shared + `"
log_dir = "` + shared + `"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for shared cache/log dir")
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[downloads]\nsplit_size_bytes = -5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Downloads.SplitSizeBytes != int64(2)<<30 {
		t.Fatalf("negative split size not normalized: %d", cfg.Downloads.SplitSizeBytes)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config did not load: exists=%v err=%v", exists, err)
	}
}
