package pipeline

import "errors"

// Sentinel errors for PipelineCoordinator operations, classified per
// spec.md §7.
var (
	// ErrNotStarted indicates Stop or SwitchProfile was called before Start
	// or after a prior Stop.
	ErrNotStarted = errors.New("pipeline: not started")

	// ErrAlreadyStarted indicates Start was called while already running.
	ErrAlreadyStarted = errors.New("pipeline: already started")

	// ErrBadConfig indicates the engines rejected the requested Profile; on
	// SwitchProfile the coordinator remains on its previous working
	// Profile (spec.md §4.9).
	ErrBadConfig = errors.New("pipeline: bad configuration")
)
