package scan

import "errors"

var (
	// ErrRunActive indicates that a run request was rejected because a run is
	// already in progress.
	ErrRunActive = errors.New("a run is already in progress")

	// ErrNilEndpoint indicates that a required endpoint handle is nil.
	ErrNilEndpoint = errors.New("required endpoint is nil")

	// ErrClosed indicates that the orchestrator has been closed.
	ErrClosed = errors.New("orchestrator closed")
)
