package seed

import "errors"

var (
	// ErrInvalidConfig is returned for counts the run cannot work with.
	ErrInvalidConfig = errors.New("invalid seed config")
	// ErrUnexpectedStatus is returned when the service answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrVerification is returned when a query disagrees with the seeded data.
	ErrVerification = errors.New("verification failed")
)
