package testsupport

import (
	"path/filepath"
	"testing"

	"bindery/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Maintenance intervals are shortened so reaper tests do not wait on
// production cadences.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDB = filepath.Join(base, "library.db")
	cfg.Paths.CacheDir = filepath.Join(base, "downloads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Downloads.ReapIntervalMinutes = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithSplitSize overrides the default part size cap.
func WithSplitSize(bytes int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Downloads.SplitSizeBytes = bytes
	}
}

// WithConfirmThresholds overrides the confirmation thresholds.
func WithConfirmThresholds(fileCount int, sizeBytes int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Downloads.ConfirmFileCount = fileCount
		cfg.Downloads.ConfirmSizeBytes = sizeBytes
	}
}

// WithJobTTLHours overrides how long finished bundles stay reusable.
func WithJobTTLHours(hours int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Downloads.JobTTLHours = hours
	}
}

// WithAPIToken enables bearer authentication on the test API server.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}
