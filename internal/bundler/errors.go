package bundler

import "errors"

// ErrEmptyRequest indicates a request named no files at all.
var ErrEmptyRequest = errors.New("no files requested")

// ErrNoFilesAvailable indicates none of the requested files exist on disk;
// no job is persisted.
var ErrNoFilesAvailable = errors.New("no files available for download")

// ErrActiveJobExists indicates the user already has a build in flight. The
// caller must wait for it or cancel it first.
var ErrActiveJobExists = errors.New("user already has an active download job")

// ErrJobNotReady indicates a part was requested from a job that has no
// finished output.
var ErrJobNotReady = errors.New("download job has no output ready")

// ErrPartOutOfRange indicates the requested part index does not exist.
var ErrPartOutOfRange = errors.New("archive part index out of range")

// ErrNotCancellable indicates the job is already in a terminal state.
var ErrNotCancellable = errors.New("download job cannot be cancelled")
