package worker

import "errors"

// Failure taxonomy for task execution. Every failure is converted into
// a task state update at the executor boundary; these sentinels keep
// the classes distinguishable in error messages and tests.
var (
	// ErrValidation marks missing, excess or oversized input detected
	// before any network call. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrProviderFailed marks a terminal failure reported by the
	// provider itself. Surfaced verbatim, never retried.
	ErrProviderFailed = errors.New("provider reported failure")

	// ErrTimeout marks a local poll or download deadline expiry,
	// distinct from a provider-reported failure.
	ErrTimeout = errors.New("timeout")

	// ErrStorage marks an artifact read or write failure. The message
	// includes the artifact key.
	ErrStorage = errors.New("storage failure")
)
