package logging

import (
	"log/slog"
	"path/filepath"

	"bindery/internal/config"
)

// LogFileName is the daemon's primary log file under the configured log
// directory.
const LogFileName = "bindery.log"

// NewFromConfig builds the daemon logger: configured format and level,
// writing to both stdout and the log file.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	return New(Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		OutputPaths: []string{
			"stdout",
			filepath.Join(cfg.Paths.LogDir, LogFileName),
		},
	})
}
