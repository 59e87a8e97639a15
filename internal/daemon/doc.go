// Package daemon wires the bundler service, the cache reaper, and the HTTP
// API into one single-instance background process. A file lock under the log
// directory enforces that only one daemon serves a given installation.
package daemon
