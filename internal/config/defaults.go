package config

const (
	defaultLibraryDB           = "~/.local/share/bindery/library.db"
	defaultCacheDir            = "~/.local/share/bindery/downloads"
	defaultLogDir              = "~/.local/share/bindery/logs"
	defaultAPIBind             = "127.0.0.1:8732"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultSplitSizeBytes      = int64(2) << 30 // 2 GiB per part
	defaultSplitSuggestion     = int64(1) << 30 // suggest splitting past 1 GiB
	defaultConfirmFileCount    = 50
	defaultConfirmSizeBytes    = int64(1) << 30
	defaultJobTTLHours         = 24
	defaultStaleAfterMinutes   = 60
	defaultReapIntervalMinutes = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDB: defaultLibraryDB,
			CacheDir:  defaultCacheDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Downloads: Downloads{
			SplitSizeBytes:       defaultSplitSizeBytes,
			SplitSuggestionBytes: defaultSplitSuggestion,
			ConfirmFileCount:     defaultConfirmFileCount,
			ConfirmSizeBytes:     defaultConfirmSizeBytes,
			JobTTLHours:          defaultJobTTLHours,
			StaleAfterMinutes:    defaultStaleAfterMinutes,
			ReapIntervalMinutes:  defaultReapIntervalMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
