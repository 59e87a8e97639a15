// Package logging constructs the slog loggers used across bindery and
// provides attribute helpers so call sites stay terse.
//
// Two output formats are supported: a console handler that renders
// "timestamp LEVEL component: message key=value" lines for interactive use,
// and a JSON handler for log shipping. Components obtain scoped loggers via
// NewComponentLogger so every record carries a stable component attribute.
package logging
