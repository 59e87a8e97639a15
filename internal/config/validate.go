package config

import "errors"

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.LibraryDB == "" {
		return errors.New("paths.library_db must be set")
	}
	if c.Paths.CacheDir == "" {
		return errors.New("paths.cache_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.CacheDir == c.Paths.LogDir {
		return errors.New("paths.cache_dir and paths.log_dir must differ: the orphan sweep deletes unknown entries under cache_dir")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return errors.New("logging.format must be console or json")
	}
	return nil
}
