package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownloads()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDB, err = expandPath(c.Paths.LibraryDB); err != nil {
		return fmt.Errorf("paths.library_db: %w", err)
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeDownloads() {
	if c.Downloads.SplitSizeBytes <= 0 {
		c.Downloads.SplitSizeBytes = defaultSplitSizeBytes
	}
	if c.Downloads.SplitSuggestionBytes <= 0 {
		c.Downloads.SplitSuggestionBytes = defaultSplitSuggestion
	}
	if c.Downloads.ConfirmFileCount <= 0 {
		c.Downloads.ConfirmFileCount = defaultConfirmFileCount
	}
	if c.Downloads.ConfirmSizeBytes <= 0 {
		c.Downloads.ConfirmSizeBytes = defaultConfirmSizeBytes
	}
	if c.Downloads.JobTTLHours <= 0 {
		c.Downloads.JobTTLHours = defaultJobTTLHours
	}
	if c.Downloads.StaleAfterMinutes <= 0 {
		c.Downloads.StaleAfterMinutes = defaultStaleAfterMinutes
	}
	if c.Downloads.ReapIntervalMinutes <= 0 {
		c.Downloads.ReapIntervalMinutes = defaultReapIntervalMinutes
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
