package feed

import (
	"errors"
	"fmt"
)

// Terminal outcomes surfaced across the engine boundary.
var (
	// ErrAllProvidersExhausted means every candidate was skipped or failed
	// and no cache fallback was available.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")

	// ErrUnsupportedDataType means no enabled provider can ever serve the
	// requested data type. This is a configuration problem, not transient.
	ErrUnsupportedDataType = errors.New("unsupported data type")
)

// Per-attempt outcomes absorbed inside the candidate loop.
var (
	// ErrProviderTimeout marks an upstream call that exceeded the
	// provider's configured timeout. Counts as a breaker failure.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrProviderRejected marks a non-success upstream response.
	// Counts as a breaker failure, same as a timeout.
	ErrProviderRejected = errors.New("provider rejected request")

	// ErrRateLimited marks a local admission denial by the rate limiter.
	// Not a provider failure; the breaker is untouched.
	ErrRateLimited = errors.New("rate limited")

	// ErrCircuitOpen marks a local admission denial by the circuit
	// breaker. Does not count as a new failure.
	ErrCircuitOpen = errors.New("circuit open")
)

// AttemptError records which provider produced a per-attempt error.
type AttemptError struct {
	Provider string
	Err      error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }
