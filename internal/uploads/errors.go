package uploads

import "errors"

var (
	// ErrUnknownUpload is returned when the given ID is not in the registry.
	ErrUnknownUpload = errors.New("unknown upload")

	// ErrNotRetryable is returned when retry is requested for an item that
	// is not in the failed state.
	ErrNotRetryable = errors.New("upload is not in a failed state")

	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("upload manager already running")
)
