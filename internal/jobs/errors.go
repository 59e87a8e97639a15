package jobs

import "errors"

// ErrNotFound indicates the requested job does not exist.
var ErrNotFound = errors.New("download job not found")

// ErrInvalidTransition indicates a status transition was requested from a
// state that does not permit it. Transitions are guarded in SQL so two
// orchestration runs can never both claim the same job.
var ErrInvalidTransition = errors.New("invalid job status transition")
