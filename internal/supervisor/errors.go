package supervisor

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when a supervised process is
	// still current.
	ErrAlreadyRunning = errors.New("bot process already running")
	// ErrSpawnFailed wraps the underlying error when the child cannot be
	// spawned. The attempt is not retried.
	ErrSpawnFailed = errors.New("failed to spawn bot process")
	// ErrTerminateFailed wraps errors from the platform kill primitive.
	// Supervisor state is cleared regardless; termination is best-effort.
	ErrTerminateFailed = errors.New("failed to terminate bot process")
)
