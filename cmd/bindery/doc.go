// Command bindery is the CLI for the bindery download daemon. It submits
// bundle requests, inspects job state, and administers the download cache
// over the daemon's HTTP API.
package main
