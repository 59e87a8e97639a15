// Package api defines the JSON payload types exchanged over the daemon's
// HTTP interface and the conversions from internal job records into them.
// Keeping the wire shapes here means the daemon handlers and the CLI client
// agree on one vocabulary.
package api
