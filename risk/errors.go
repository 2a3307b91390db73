package risk

import "errors"

// Errors returned by the enforcement path. A limit breach is not an error;
// it is a Decision with Allowed == false.
var (
	// ErrInvalidInput marks a proposal rejected before any state is touched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDataUnavailable means the limit store or ledger could not be read.
	// The proposal is denied as undetermined and may be retried.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrTimeout means the caller's context ended while waiting for the
	// counterparty scope or for a store read.
	ErrTimeout = errors.New("timed out")

	// ErrIndeterminate means the decision was made but the booking could not
	// be persisted. The transaction must not be treated as booked.
	ErrIndeterminate = errors.New("booking indeterminate")
)
