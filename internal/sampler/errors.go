package sampler

import "emperror.dev/errors"

const (
	// ErrConfiguration is returned by New for invalid timing parameters.
	ErrConfiguration = errors.Sentinel("invalid sampler configuration")

	// ErrNotStarted is returned by Wait when Start was never called.
	ErrNotStarted = errors.Sentinel("sampler not started")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.Sentinel("sampler already started")
	// ErrFrozen is returned by the report methods once the summary is frozen.
	ErrFrozen = errors.Sentinel("sampler summary is frozen")
	// ErrWaitAborted is returned by WaitContext when the context ends before
	// the loop exits.
	ErrWaitAborted = errors.Sentinel("wait aborted before the sampler loop exited")
)
