// Package bundler orchestrates download jobs from request to reusable
// archive.
//
// The Service drives the job state machine: it derives the content key,
// short-circuits on cache hits, enforces the one-build-per-user rule, runs
// size estimation, persists the job, and executes the archive build as a
// background goroutine. It also owns cancellation, part streaming for the
// original requester, and the administrative cache operations the CLI and
// API expose.
//
// A cache hit is only served after re-verifying every recorded part still
// exists on disk. Existence on disk is the source of truth, not the job
// record, which is what keeps reuse safe across crashes and out-of-band
// deletions without a secondary invalidation signal.
package bundler
