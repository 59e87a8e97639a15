// Package config loads, normalizes, and validates bindery's TOML
// configuration.
//
// Configuration sections by subsystem:
//   - Paths: catalog database, download cache root, logs, API bind address
//   - Downloads: split sizes, confirmation thresholds, TTLs, sweep cadence
//   - Logging: log format and level
//
// Load resolves the config file (explicit path, ~/.config/bindery/config.toml,
// or ./bindery.toml), applies defaults for anything unset, expands ~ in path
// fields, and validates the result. A missing file is not an error; defaults
// apply.
package config
